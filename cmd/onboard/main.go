// Dealflow onboarding in the terminal: walks a buyer or seller flow with
// interactive prompts and prints the completed record as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/joho/godotenv"

	"github.com/ashureev/dealflow/internal/config"
	"github.com/ashureev/dealflow/internal/onboarding"
	"github.com/ashureev/dealflow/internal/store"
	"github.com/ashureev/dealflow/internal/wizard"
)

const (
	navContinue = "Continue"
	navBack     = "Back"
	cliUserID   = "cli"
)

func main() {
	flowID := flag.String("flow", "buyer", "flow to run (buyer or seller)")
	flowsDir := flag.String("flows", "", "directory of flow YAML files (default: built-in flows)")
	outPath := flag.String("out", "", "write the record to this file instead of stdout")
	save := flag.Bool("save", false, "store the submission in the configured database")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := run(cfg, *flowID, *flowsDir, *outPath, *save); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			fmt.Fprintln(os.Stderr, "aborted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, flowID, flowsDir, outPath string, save bool) error {
	catalog, err := loadCatalog(flowsDir)
	if err != nil {
		return err
	}
	flow, ok := catalog.Get(flowID)
	if !ok {
		return fmt.Errorf("unknown flow %q (available: %s)", flowID, strings.Join(catalog.IDs(), ", "))
	}

	rec, err := walk(wizard.New(flow), cfg.Onboarding.VerificationDelay)
	if err != nil {
		return err
	}

	if save {
		repo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return err
		}
		defer repo.Close()
		id, err := onboarding.NewStoreSubmitter(repo).Submit(context.Background(), cliUserID, rec)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "saved submission", id)
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

func loadCatalog(dir string) (*wizard.Catalog, error) {
	if dir == "" {
		return wizard.BuiltinCatalog()
	}
	return wizard.LoadCatalog(os.DirFS(dir))
}

func walk(eng *wizard.Engine, verificationDelay time.Duration) (*wizard.Record, error) {
	for {
		step, _ := eng.Flow().Step(eng.CurrentStep())
		fmt.Fprintf(os.Stderr, "\n[%d/%d] %s\n", step.Number, eng.TotalSteps(), step.Title)

		if step.Kind == wizard.KindVerification {
			fmt.Fprintln(os.Stderr, "Verifying...")
			time.Sleep(verificationDelay)
			eng.CompleteVerification()
			continue
		}

		if err := collect(eng, step); err != nil {
			return nil, err
		}

		if eng.CurrentStep() > 1 {
			nav := navContinue
			if err := survey.AskOne(&survey.Select{Message: "Next:", Options: []string{navContinue, navBack}}, &nav); err != nil {
				return nil, err
			}
			if nav == navBack {
				eng.Retreat()
				continue
			}
		}

		res := eng.Advance()
		switch res.Outcome {
		case wizard.OutcomeBlocked:
			fmt.Fprintln(os.Stderr, "!", res.Failure.Message)
		case wizard.OutcomeSubmitted:
			return res.Record, nil
		}
	}
}

// collect prompts for the step's input and writes it into the engine draft.
func collect(eng *wizard.Engine, step *wizard.Step) error {
	draft := eng.Draft(step.Number)

	switch step.Input {
	case wizard.InputSingle:
		prompt := &survey.Select{Message: step.Title, Options: step.Options}
		if len(draft.SelectedOptions) > 0 && step.HasOption(draft.SelectedOptions[0]) {
			prompt.Default = draft.SelectedOptions[0]
		}
		var answer string
		if err := survey.AskOne(prompt, &answer); err != nil {
			return err
		}
		if err := eng.SetSingleSelect(step.Number, answer); err != nil {
			return err
		}
	case wizard.InputMulti:
		if err := collectMulti(eng, step, draft); err != nil {
			return err
		}
	}

	for _, f := range step.Fields {
		answer, err := askField(f, draft.FreeTextFields[f.ID])
		if err != nil {
			return err
		}
		if err := eng.SetField(step.Number, f.ID, answer); err != nil {
			return err
		}
	}
	return nil
}

func collectMulti(eng *wizard.Engine, step *wizard.Step, draft wizard.StepResponse) error {
	var want []string
	if len(step.Options) > 0 {
		defaults := slices.DeleteFunc(slices.Clone(draft.SelectedOptions), func(v string) bool { return !step.HasOption(v) })
		prompt := &survey.MultiSelect{Message: step.Title, Options: step.Options, Default: defaults}
		if err := survey.AskOne(prompt, &want); err != nil {
			return err
		}
	}
	if step.AllowCustom {
		var custom string
		existing := slices.DeleteFunc(slices.Clone(draft.SelectedOptions), step.HasOption)
		prompt := &survey.Input{Message: "Other (comma separated):", Default: strings.Join(existing, ", ")}
		if err := survey.AskOne(prompt, &custom); err != nil {
			return err
		}
		for _, v := range strings.Split(custom, ",") {
			if v = strings.TrimSpace(v); v != "" {
				want = append(want, v)
			}
		}
	}

	for _, v := range draft.SelectedOptions {
		if !slices.Contains(want, v) {
			if err := eng.RemoveItem(step.Number, v); err != nil {
				return err
			}
		}
	}
	for _, v := range want {
		if err := eng.AddItem(step.Number, v); err != nil {
			return err
		}
	}
	return nil
}

func askField(f wizard.Field, current string) (string, error) {
	var answer string
	var prompt survey.Prompt = &survey.Input{Message: f.Label, Default: current}
	if f.Multiline {
		prompt = &survey.Multiline{Message: f.Label, Default: current}
	}
	err := survey.AskOne(prompt, &answer)
	return answer, err
}
