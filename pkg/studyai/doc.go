// Package studyai turns uploaded study material into notes, flashcards,
// quizzes and chat answers using a generative AI provider.
//
// Calls go straight to the provider when the caller holds API keys
// (rotated round-robin by a KeyRing), and through the StudyBuddy backend's
// /api/ai/generate proxy when it holds none.
//
//	ring := studyai.NewKeyRing(studyai.CollectKeys(os.Getenv, studyai.ClientKeyVars...)...)
//	client := studyai.NewClient(&studyai.Resolver{
//		Keys:     ring,
//		Provider: studyai.NewGenAIProvider(),
//		Proxy:    studyai.NewProxyTransport("http://localhost:8080"),
//	}, slog.Default())
//	notes, err := client.GenerateNotes(ctx, files)
package studyai
