package domain

// Outcome classifies a resolved turn.
type Outcome string

const (
	OutcomeCorrect  Outcome = "correct"
	OutcomeWrong    Outcome = "wrong"
	OutcomeNoAnswer Outcome = "no_answer"
)

// Delta is the score ledger: the fixed score change a single outcome awards.
// Scores are unbounded and may go negative.
func (o Outcome) Delta() int {
	switch o {
	case OutcomeCorrect:
		return 10
	case OutcomeWrong:
		return -5
	default:
		return 0
	}
}

// ClassifyAnswer maps a submission against the correct answer. A nil answer
// (absent submission or deadline expiry) is a no-answer.
func ClassifyAnswer(answer *string, correct string) Outcome {
	if answer == nil {
		return OutcomeNoAnswer
	}
	if *answer == correct {
		return OutcomeCorrect
	}
	return OutcomeWrong
}
