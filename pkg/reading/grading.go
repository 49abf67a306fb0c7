package reading

// Grade compares a selection against the quiz answer. A missing quiz or
// selection is never correct.
func Grade(quiz *QuizData, selection *int) bool {
	if quiz == nil || selection == nil {
		return false
	}
	return *selection == quiz.CorrectIndex
}
