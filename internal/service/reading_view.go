package service

import (
	"ai-reading-be/internal/dto"
	"ai-reading-be/pkg/reading"
)

func toSessionResponse(c *reading.Controller) *dto.ReadingSessionResponse {
	st := c.State()
	res := &dto.ReadingSessionResponse{
		DocumentId:           st.DocumentID,
		Stage:                string(st.Stage),
		DocType:              string(st.DocType),
		WorkingPrerequisites: toPrerequisiteResponses(st.WorkingPrerequisites),
		QuizSelection:        st.QuizSelection,
		QuizSubmitted:        st.QuizSubmitted,
		Transcript:           make([]dto.ChatMessageResponse, 0, len(st.Transcript)),
		PendingRequest:       st.PendingRequest,
	}

	if st.StudyMap != nil {
		res.StudyMap = &dto.StudyMapResponse{
			Topic:           st.StudyMap.Topic,
			Prerequisites:   toPrerequisiteResponses(st.StudyMap.Prerequisites),
			InitialBriefing: st.StudyMap.InitialBriefing,
		}
	}

	if q := st.QuizData; q != nil {
		res.Quiz = &dto.QuizResponse{
			Question: q.Question,
			Options:  q.Options,
		}
		if st.QuizSubmitted {
			correctIndex := q.CorrectIndex
			res.Quiz.CorrectIndex = &correctIndex
			res.Quiz.Explanation = q.Explanation
			isCorrect := reading.Grade(q, st.QuizSelection)
			res.IsCorrect = &isCorrect
		}
	}

	for _, m := range st.Transcript {
		res.Transcript = append(res.Transcript, dto.ChatMessageResponse{
			Role:      string(m.Role),
			Text:      m.Text,
			Mode:      string(m.Mode),
			Timestamp: m.Timestamp,
		})
	}
	return res
}

func toPrerequisiteResponses(prereqs []reading.Prerequisite) []dto.PrerequisiteResponse {
	out := make([]dto.PrerequisiteResponse, 0, len(prereqs))
	for _, p := range prereqs {
		out = append(out, dto.PrerequisiteResponse{
			Id:       p.ID,
			Concept:  p.Concept,
			Mastered: p.Mastered,
		})
	}
	return out
}
