package config

import "time"

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDBPath = "storage.db"

	DefaultAIBackend    = "huggingface"
	DefaultAIBaseURL    = "https://api-inference.huggingface.co"
	DefaultAIModel      = "gpt2"
	DefaultAITimeout    = 2 * time.Minute
	DefaultAIMaxRetries = 0

	// Sent and persisted when the generation API returns an unexpected payload shape.
	DefaultAIFallbackAnswer = "Sorry, an error occurred."

	DefaultMsgWelcome = "Hello!\n\n" +
		"This bot gives you access to a text-generation model.\n\n" +
		"What the bot can do:\n" +
		"1. Write and edit texts\n" +
		"2. Translate between languages\n" +
		"3. Write and edit code\n" +
		"4. Answer questions\n\n" +
		"To get a text answer, just type your question in the chat.\n\n" +
		"To delete the conversation context, use the /deletecontext command."
	DefaultMsgContextDeleted = "Context deleted."
	DefaultMsgGeneralError   = "An error occurred while getting a response."
)
