package model

// All returns every table in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Document{},
		&DocumentChunk{},
		&Quiz{},
		&QuizAttempt{},
		&Summary{},
	}
}
