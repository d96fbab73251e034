package cli

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
)

func (a *App) runNotes(ctx context.Context, args []string) error {
	fs := a.subFlags("notes", "FILE...")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireArgs(fs); err != nil {
		return err
	}

	files, err := loadFiles(fs.Args())
	if err != nil {
		return err
	}
	notes, err := a.studyClient().GenerateNotes(ctx, files)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, notes)
	return err
}

func (a *App) runFlashcards(ctx context.Context, args []string) error {
	fs := a.subFlags("flashcards", "FILE...")
	notesPath := fs.String("notes", "", "notes file to ground the cards on")
	have := fs.Int("have", 0, "number of cards already generated; new ids continue from here")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireArgs(fs); err != nil {
		return err
	}

	files, err := loadFiles(fs.Args())
	if err != nil {
		return err
	}
	notes, err := readOptional(*notesPath)
	if err != nil {
		return err
	}

	cards, err := a.studyClient().GenerateFlashcards(ctx, files, notes, *have)
	if err != nil {
		return err
	}
	return a.printJSON(cards)
}

func (a *App) runQuiz(ctx context.Context, args []string) error {
	fs := a.subFlags("quiz", "FILE...")
	notesPath := fs.String("notes", "", "notes file to ground the quiz on")
	difficulty := fs.String("difficulty", string(studyai.DifficultyMedium), "easy, medium or hard")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireArgs(fs); err != nil {
		return err
	}

	files, err := loadFiles(fs.Args())
	if err != nil {
		return err
	}
	notes, err := readOptional(*notesPath)
	if err != nil {
		return err
	}

	qs, err := a.studyClient().GenerateQuiz(ctx, files, notes, studyai.ParseDifficulty(*difficulty))
	if err != nil {
		return err
	}
	return a.printJSON(qs)
}

func (a *App) runChat(ctx context.Context, args []string) error {
	fs := a.subFlags("chat", "MESSAGE")
	notesPath := fs.String("notes", "", "notes file used as study context")
	attach := fs.String("attach", "", "file to attach to the message")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireArgs(fs); err != nil {
		return err
	}

	notes, err := readOptional(*notesPath)
	if err != nil {
		return err
	}
	var attachment *studyai.File
	if *attach != "" {
		f, err := loadFile(*attach)
		if err != nil {
			return err
		}
		attachment = &f
	}

	message := fs.Arg(0)
	for _, w := range fs.Args()[1:] {
		message += " " + w
	}

	reply, err := a.studyClient().Chat(ctx, message, nil, studyai.StudyContext{Notes: notes}, attachment)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, reply)
	return err
}
