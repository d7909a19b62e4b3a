package companion

import "learnemg/internal/persona"

var thinkingLines = map[string][]string{
	persona.MentorID: {
		"Thinking it through...",
		"Checking the reference values...",
		"Pulling up my notes...",
		"Sketching the waveform in my head...",
		"Lining up the nerve segments...",
	},
	persona.GrumpID: {
		"Sighing deeply...",
		"Consulting my vast superiority...",
		"Looking for crayons to explain this...",
		"Counting to ten...",
		"Pretending this is a hard question...",
	},
}

var idleLines = map[string][]string{
	persona.GrumpID: {
		"Still there? The motor units have fired more times than you've scrolled.",
		"A full minute of silence. Are you studying or sleeping?",
		"I've seen faster conduction velocities in a demyelinated nerve.",
		"If you're waiting for the answers to appear on their own, they won't.",
		"Your fibrillation potentials are showing. Do something.",
	},
}

const setupInstructions = `### Connect the companion
The companion talks to Google's Gemini API and needs your own API key.
* Create a key at **aistudio.google.com** under *Get API key*.
* Paste it in the chat as ` + "`/key YOUR_KEY`" + `, or run ` + "`learnemg key set`" + `.
* Or export ` + "`GEMINI_API_KEY`" + ` before starting learnemg.
The key is stored only on this machine.`

const helpText = `### Commands
* ` + "`/clear`" + ` start a fresh conversation
* ` + "`/key <key>`" + ` save your Gemini API key
* ` + "`/model [id]`" + ` show or set the model
* ` + "`/persona`" + ` switch between Dr. Lumen and Dr. Grimsby
* ` + "`/summarize`" + ` summarize the page you're reading
* ` + "`/help`" + ` show this list`

const summarizePrompt = "Summarize the following study page for an EMG resident. " +
	"Keep the key facts, reference values and clinical pearls, and finish with two self-test questions.\n\n"
