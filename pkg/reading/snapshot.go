package reading

import "time"

// Snapshot is the persisted subset of SessionState. QuizSelection is only
// present once the quiz has been submitted.
type Snapshot struct {
	Stage                Stage          `json:"stage"`
	DocType              DocType        `json:"doc_type"`
	StudyMap             *StudyMap      `json:"study_map,omitempty"`
	WorkingPrerequisites []Prerequisite `json:"working_prerequisites"`
	QuizData             *QuizData      `json:"quiz_data,omitempty"`
	QuizSelection        *int           `json:"quiz_selection,omitempty"`
	QuizSubmitted        bool           `json:"quiz_submitted"`
	Transcript           []ChatMessage  `json:"transcript"`
	CapturedAt           time.Time      `json:"captured_at"`
}

func snapshotOf(s *SessionState, now time.Time) Snapshot {
	snap := Snapshot{
		Stage:                s.Stage,
		DocType:              s.DocType,
		StudyMap:             cloneStudyMap(s.StudyMap),
		WorkingPrerequisites: clonePrerequisites(s.WorkingPrerequisites),
		QuizData:             cloneQuiz(s.QuizData),
		QuizSubmitted:        s.QuizSubmitted,
		Transcript:           cloneTranscript(s.Transcript),
		CapturedAt:           now,
	}
	if s.QuizSubmitted {
		snap.QuizSelection = cloneInt(s.QuizSelection)
	}
	return snap
}

// restoreState rebuilds a session from a snapshot. Fields that would break an
// invariant are dropped rather than trusted.
func restoreState(documentID string, snap *Snapshot, resetMastery bool) SessionState {
	st := initialState(documentID)

	if snap.Stage.Valid() {
		st.Stage = snap.Stage
	}
	if snap.DocType.Valid() {
		st.DocType = snap.DocType
	}
	st.StudyMap = cloneStudyMap(snap.StudyMap)
	st.WorkingPrerequisites = clonePrerequisites(snap.WorkingPrerequisites)
	if len(st.WorkingPrerequisites) == 0 && st.StudyMap != nil {
		st.WorkingPrerequisites = clonePrerequisites(st.StudyMap.Prerequisites)
	}
	if resetMastery {
		for i := range st.WorkingPrerequisites {
			st.WorkingPrerequisites[i].Mastered = false
		}
	}

	if snap.QuizData.Valid() {
		st.QuizData = cloneQuiz(snap.QuizData)
		if snap.QuizSubmitted && snap.QuizSelection != nil {
			sel := *snap.QuizSelection
			if sel >= 0 && sel < len(st.QuizData.Options) {
				st.QuizSelection = &sel
				st.QuizSubmitted = true
			}
		}
	}

	st.Transcript = cloneTranscript(snap.Transcript)

	// a quiz cannot exist without a study map
	if st.Stage == StageQuiz && st.StudyMap == nil {
		st.Stage = StageDiagnosis
	}
	// saved while the question was still being generated: resume where the
	// quiz was entered from so it can be requested again
	if st.Stage == StageQuiz && st.QuizData == nil {
		st.Stage = StageDiagnosis
		if hasTutoringTurns(st.Transcript) {
			st.Stage = StageTutoring
		}
	}
	return st
}

func hasTutoringTurns(transcript []ChatMessage) bool {
	for _, m := range transcript {
		if m.Mode == ModeTutoring {
			return true
		}
	}
	return false
}

func initialState(documentID string) SessionState {
	return SessionState{
		DocumentID:           documentID,
		Stage:                StageDiagnosis,
		DocType:              DocTypeSTEM,
		WorkingPrerequisites: []Prerequisite{},
		Transcript:           []ChatMessage{},
	}
}

func cloneState(s *SessionState) SessionState {
	out := *s
	out.StudyMap = cloneStudyMap(s.StudyMap)
	out.WorkingPrerequisites = clonePrerequisites(s.WorkingPrerequisites)
	out.QuizData = cloneQuiz(s.QuizData)
	out.QuizSelection = cloneInt(s.QuizSelection)
	out.Transcript = cloneTranscript(s.Transcript)
	return out
}

func cloneStudyMap(m *StudyMap) *StudyMap {
	if m == nil {
		return nil
	}
	out := *m
	out.Prerequisites = clonePrerequisites(m.Prerequisites)
	return &out
}

func clonePrerequisites(p []Prerequisite) []Prerequisite {
	out := make([]Prerequisite, len(p))
	copy(out, p)
	return out
}

func cloneQuiz(q *QuizData) *QuizData {
	if q == nil {
		return nil
	}
	out := *q
	out.Options = append([]string(nil), q.Options...)
	return &out
}

func cloneTranscript(t []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(t))
	copy(out, t)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}
