// Package gemini provides an LLM client for Google Gemini models.
//
// The client uses the official google.golang.org/genai library against the
// Gemini API backend. System messages are passed as the system instruction;
// the last message of the request is sent and the rest becomes the chat
// history.
//
//	client, err := gemini.NewClient(llm.ClientConfig{
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	    Model:  "gemini-1.5-flash",
//	})
package gemini
