package reading

import (
	"context"
	"errors"
	"sync"
)

type fakeGateway struct {
	mu sync.Mutex

	studyMap    *StudyMap
	diagnoseErr error
	docType     DocType
	classifyErr error
	quiz        *QuizData
	quizErr     error
	replyErr    error

	// hooks run before the fake returns; tests block in them to hold a
	// request in flight
	diagnoseHook func(ctx context.Context) error
	classifyHook func()
	quizHook     func()
	tutorHook    func(req TutorRequest)

	calls         []RequestClass
	diagnoseInput []Content
	quizTopics    []string
	tutorRequests []TutorRequest
}

func (g *fakeGateway) record(class RequestClass) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, class)
}

func (g *fakeGateway) Diagnose(ctx context.Context, content Content) (*StudyMap, error) {
	g.record(ClassDiagnosis)
	g.mu.Lock()
	g.diagnoseInput = append(g.diagnoseInput, content)
	hook := g.diagnoseHook
	g.mu.Unlock()
	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if g.diagnoseErr != nil {
		return nil, g.diagnoseErr
	}
	return cloneStudyMap(g.studyMap), nil
}

func (g *fakeGateway) Classify(ctx context.Context, content Content) (DocType, error) {
	g.record(ClassClassify)
	if g.classifyHook != nil {
		g.classifyHook()
	}
	if g.classifyErr != nil {
		return "", g.classifyErr
	}
	return g.docType, nil
}

func (g *fakeGateway) GatekeeperQuiz(ctx context.Context, content Content, topic string) (*QuizData, error) {
	g.record(ClassGatekeeperQuiz)
	g.mu.Lock()
	g.quizTopics = append(g.quizTopics, topic)
	g.mu.Unlock()
	if g.quizHook != nil {
		g.quizHook()
	}
	if g.quizErr != nil {
		return nil, g.quizErr
	}
	return cloneQuiz(g.quiz), nil
}

func (g *fakeGateway) TutorTurn(ctx context.Context, req TutorRequest) (string, error) {
	g.record(ClassTutorTurn)
	g.mu.Lock()
	g.tutorRequests = append(g.tutorRequests, req)
	g.mu.Unlock()
	if g.tutorHook != nil {
		g.tutorHook(req)
	}
	if g.replyErr != nil {
		return "", g.replyErr
	}
	return "reply to: " + req.Text, nil
}

func (g *fakeGateway) count(class RequestClass) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == class {
			n++
		}
	}
	return n
}

func (g *fakeGateway) tutorRequestsCopy() []TutorRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]TutorRequest(nil), g.tutorRequests...)
}

type fakeSource struct {
	content Content
	err     error
}

func (s fakeSource) GetContent(ctx context.Context, documentID string) (Content, error) {
	return s.content, s.err
}

type fakeLoader struct {
	snap *Snapshot
	err  error
}

func (l fakeLoader) Load(ctx context.Context, documentID string) (*Snapshot, error) {
	return l.snap, l.err
}

type recordingObserver struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (o *recordingObserver) Observe(documentID string, snapshot Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, snapshot)
}

func (o *recordingObserver) last() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshots[len(o.snapshots)-1]
}

type stageChange struct {
	from, to Stage
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []stageChange
}

func (n *recordingNotifier) StageChanged(ctx context.Context, documentID string, from, to Stage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, stageChange{from, to})
}

var errInference = errors.New("inference unavailable")

func textContent() Content {
	return Content{Text: "The first law of thermodynamics states that energy is conserved."}
}

func thermoMap() *StudyMap {
	return &StudyMap{
		Topic:           "Thermodynamics",
		Prerequisites:   []Prerequisite{{ID: "p1", Concept: "Entropy", Mastered: false}},
		InitialBriefing: "Heat, work and energy.",
	}
}

func sampleQuiz() *QuizData {
	return &QuizData{
		Question:     "Which quantity never decreases in an isolated system?",
		Options:      []string{"Temperature", "Entropy", "Pressure", "Volume"},
		CorrectIndex: 1,
		Explanation:  "The second law.",
	}
}
