// Package cli implements the studyai command: study material generation
// from local files, and account commands against a StudyBuddy backend.
//
// Generation calls go straight to the provider when GEMINI_API_KEY (or
// GEMINI_API_KEY_2 .. _5) is set, rotating across the keys, and through the
// backend's /api/ai/generate proxy otherwise.
//
// Usage:
//
//	studyai [-server URL] [-model NAME] <command> [flags] [args]
//
// Commands:
//
//	notes FILE...                       Markdown study notes
//	flashcards [-notes F] FILE...       flashcards as JSON
//	quiz [-difficulty D] [-notes F] FILE...
//	                                    4-option quiz as JSON
//	chat [-notes F] [-attach F] MSG     one chat reply
//	signup -name N -email E             create an account (password prompted)
//	verify -email E -otp CODE           verify an account
//	login -email E                      log in and print the session token
//	me -token T                         show the account behind a token
//	health                              backend storage status
package cli
