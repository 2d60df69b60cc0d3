package gateway

import "fmt"

const tutorPersona = `You are PolyTutor, a patient and encouraging programming tutor.
Explain concepts step by step, prefer small runnable examples, and ask one guiding question when the learner seems stuck.
Keep answers concise and format code with Markdown fenced blocks.`

const voicePersona = `You are PolyTutor, a friendly programming tutor speaking with a learner in real time.
Use short spoken sentences, avoid reading code symbol by symbol, and check understanding often.`

const analysisInstruction = `You are an expert code reviewer and programming instructor.
Respond only with JSON matching the provided schema.`

func analysisPrompt(code string) string {
	return fmt.Sprintf(`Analyze the following code.

`+"```"+`
%s
`+"```"+`

1. Explain what the code does in plain language.
2. List every bug or error you can find (an empty list if there are none).
3. Suggest concrete improvements.
4. Simulate the exact output the program would print if it were executed.`, code)
}

func lessonPrompt(topic string) string {
	return fmt.Sprintf(`Write a short, engaging programming lesson about "%s".
Include:
1. A clear explanation of the concept.
2. A practical code example in a fenced code block.
3. A small exercise for the learner to try.
Format the whole lesson in Markdown.`, topic)
}

func imagePrompt(concept string) string {
	return fmt.Sprintf("Create a clean, educational diagram that visually explains the programming concept %q. Use labels, arrows and a light background.", concept)
}

func videoPrompt(concept string) string {
	return fmt.Sprintf("A short animated explainer that visualizes the programming concept %q with simple motion graphics and clear labels.", concept)
}
