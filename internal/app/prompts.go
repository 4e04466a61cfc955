package app

import "fmt"

var difficultyInstructions = map[string]string{
	DifficultyEasy:   "Focus on basic concepts and straightforward questions.",
	DifficultyMedium: "Include moderate complexity questions that require understanding.",
	DifficultyHard:   "Create challenging questions that require deep analysis and critical thinking.",
}

func quizSystemPrompt(count int, difficulty string) string {
	return fmt.Sprintf(`
You are a helpful quiz generator.
Create a quiz with exactly %d questions based on the provided document context.
%s

Return the result as valid JSON in the following format:

{
  "quiz": [
    {
      "question": "Question text here",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "answer": "Option A"
    }
  ]
}

Important:
- Include exactly %d questions
- Each question must have exactly 4 options
- The "answer" field must match one of the options exactly
- Do not include any text outside the JSON object
- Base questions only on the provided document context
`, count, difficultyInstructions[difficulty], count)
}

func quizUserMessage(topic string) string {
	if topic != "" {
		return "Generate a quiz about: " + topic
	}
	return "Generate a quiz based on the selected documents"
}

func summarySystemPrompt(targetWords int, topic string) string {
	base := fmt.Sprintf(`
You are an expert document summarizer. Your task is to create a comprehensive yet concise summary.

CRITICAL INSTRUCTIONS:
- Base your summary ONLY on the provided document context
- Do NOT hallucinate or add information not present in the documents
- Aim for approximately %d words
- Structure your response exactly as: "Title: [descriptive title]" followed by "Summary: [summary content]"
- Make the summary informative, well-structured, and easy to understand
- Use bullet points or paragraphs as appropriate for clarity
`, targetWords)

	if topic != "" {
		return base + fmt.Sprintf(`
- Focus specifically on content related to: "%s"
- If the topic is not well-covered in the documents, mention this limitation
- Organize the summary around the key aspects of this topic found in the documents
`, topic)
	}
	return base + `
- Provide a comprehensive overview of the entire document
- Include the main themes, key points, and important conclusions
- Organize logically with clear structure
`
}

func summaryUserMessage(topic string) string {
	if topic != "" {
		return "Create a focused summary about: " + topic
	}
	return "Create a comprehensive summary of the document"
}

const chatSystemPrompt = `
You are an expert document assistant. Your task is to answer questions based strictly on the provided document context.

CRITICAL INSTRUCTIONS:
- Base your answers ONLY on the provided document context
- Do NOT hallucinate or add information not present in the documents
- If you cannot answer based on the context, clearly state "I cannot find information about that in the provided document"
- Provide clear, concise, and helpful answers
- When relevant, cite specific parts of the document to support your answer
- If the question is unclear, ask for clarification
- Maintain a helpful and professional tone
`
