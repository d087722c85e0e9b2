package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/AzielCF/az-funnel/conversation"
	"github.com/AzielCF/az-funnel/conversation/domain"
	"github.com/AzielCF/az-funnel/conversation/script"
	coreconfig "github.com/AzielCF/az-funnel/core/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play one conversation in the terminal",
	Long: `Runs a single conversation locally. Answers are read from stdin unless --auto is set.
Media playback is faked: every clip "ends" after --media-duration.`,
	RunE: simulate,
}

type simulateOptions struct {
	Instant       bool
	Auto          bool
	Name          string
	Age           string
	Symptoms      string
	MediaDuration time.Duration
}

var simOpts simulateOptions

func init() {
	simulateCmd.Flags().BoolVar(&simOpts.Instant, "instant", false, "skip every delay")
	simulateCmd.Flags().BoolVar(&simOpts.Auto, "auto", false, "answer automatically with --name, --age and --symptoms")
	simulateCmd.Flags().StringVar(&simOpts.Name, "name", "Maria", "name used by --auto")
	simulateCmd.Flags().StringVar(&simOpts.Age, "age", "52", "age used by --auto")
	simulateCmd.Flags().StringVar(&simOpts.Symptoms, "symptoms", "Cansaço e muita sede", "symptoms used by --auto")
	simulateCmd.Flags().DurationVar(&simOpts.MediaDuration, "media-duration", 3*time.Second, "how long each audio or video plays")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	delay := conversation.DefaultStepEntryDelay
	if coreconfig.Global != nil {
		delay = coreconfig.Global.Funnel.StepEntryDelay
	}
	return runSimulation(ctx, script.Default(), simOpts, delay, cmd.InOrStdin(), cmd.OutOrStdout())
}

type simulator struct {
	script  *script.Script
	session *conversation.Session
	manual  *conversation.ManualScheduler
	updates chan domain.Snapshot

	opts    simulateOptions
	in      *bufio.Reader
	out     io.Writer
	printed int
	status  string
}

func runSimulation(ctx context.Context, sc *script.Script, opts simulateOptions, entryDelay time.Duration, in io.Reader, out io.Writer) error {
	sim := &simulator{
		script: sc,
		opts:   opts,
		in:     bufio.NewReader(in),
		out:    out,
	}

	engineOpts := []conversation.Option{
		conversation.WithStepEntryDelay(entryDelay),
		conversation.WithLogger(logrus.WithField("session_id", "simulator")),
	}
	if opts.Instant {
		sim.manual = conversation.NewManualScheduler(time.Now())
		engineOpts = append(engineOpts,
			conversation.WithScheduler(sim.manual),
			conversation.WithClock(sim.manual.Now),
		)
	} else {
		sim.updates = make(chan domain.Snapshot, 64)
		engineOpts = append(engineOpts, conversation.WithListener(func(snap domain.Snapshot) {
			sim.updates <- snap
		}))
	}

	sim.session = conversation.NewSession(uuid.NewString(), sc, engineOpts...)
	defer sim.session.Close()

	fmt.Fprintf(out, "== %s ==\n", sc.Persona.Name)
	sim.session.Start()
	return sim.loop(ctx)
}

func (sim *simulator) loop(ctx context.Context) error {
	for {
		snap, err := sim.settle(ctx)
		if err != nil {
			return err
		}

		switch {
		case snap.Phase == domain.PhaseFinished:
			if snap.Input.Kind == domain.AffordanceLink {
				fmt.Fprintf(sim.out, "\n[ %s ] -> %s\n", snap.Input.Label, snap.Input.URL)
			}
			return nil
		case snap.Phase == domain.PhaseClosed:
			return nil
		}

		switch snap.Awaiting {
		case domain.AwaitMediaEnd:
			if !sim.opts.Instant {
				select {
				case <-time.After(sim.opts.MediaDuration):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			sim.session.NotifyMediaEnded()

		case domain.AwaitText:
			answer, err := sim.textAnswer(snap)
			if err != nil {
				return err
			}
			if !sim.session.SubmitUserText(answer) {
				if sim.opts.Auto {
					return fmt.Errorf("answer %q rejected at %s", answer, snap.Step)
				}
				fmt.Fprintln(sim.out, "(resposta vazia, tente de novo)")
				sim.retry()
			}

		case domain.AwaitChoice:
			label, err := sim.choiceAnswer(snap)
			if err != nil {
				return err
			}
			if !sim.session.SubmitUserChoice(label) {
				fmt.Fprintf(sim.out, "(opção desconhecida: %s)\n", label)
				sim.retry()
			}

		default:
			return fmt.Errorf("conversation stalled at %s", snap.Step)
		}
	}
}

// retry re-queues the current state after a rejected answer; the engine does not notify when nothing changes.
func (sim *simulator) retry() {
	if sim.manual == nil {
		sim.updates <- sim.session.Snapshot()
	}
}

// settle returns the first snapshot in which the session waits for the user or has ended.
func (sim *simulator) settle(ctx context.Context) (domain.Snapshot, error) {
	if sim.manual != nil {
		sim.manual.Flush()
		snap := sim.session.Snapshot()
		sim.render(snap)
		return snap, nil
	}

	for {
		select {
		case <-ctx.Done():
			return domain.Snapshot{}, ctx.Err()
		case snap := <-sim.updates:
			sim.render(snap)
			if snap.Phase != domain.PhaseEmitting && snap.Phase != domain.PhaseIdle {
				return snap, nil
			}
		}
	}
}

func (sim *simulator) render(snap domain.Snapshot) {
	if !sim.opts.Instant && snap.StatusText != sim.status && snap.Phase == domain.PhaseEmitting {
		fmt.Fprintf(sim.out, "  ... %s %s\n", sim.script.Persona.Name, snap.StatusText)
	}
	sim.status = snap.StatusText

	for _, msg := range snap.Messages[min(sim.printed, len(snap.Messages)):] {
		fmt.Fprintln(sim.out, formatMessage(sim.script.Persona.Name, msg))
	}
	sim.printed = len(snap.Messages)
}

func formatMessage(persona string, msg domain.Message) string {
	clock := msg.Timestamp.Format("15:04:05")
	switch {
	case msg.Sender == domain.SenderSystem:
		return fmt.Sprintf("[%s] -- %s --", clock, msg.Content)
	case msg.Sender == domain.SenderUser:
		return fmt.Sprintf("[%s] %50s <", clock, msg.Content)
	case msg.Kind.IsMedia():
		return fmt.Sprintf("[%s] %s: <%s> %s", clock, persona, msg.Kind, msg.MediaURL)
	default:
		return fmt.Sprintf("[%s] %s: %s", clock, persona, msg.Content)
	}
}

func (sim *simulator) textAnswer(snap domain.Snapshot) (string, error) {
	if sim.opts.Auto {
		answer := sim.opts.Symptoms
		if step, ok := sim.script.Step(snap.Step); ok {
			if rule, ok := step.Exit.(domain.AwaitUserText); ok {
				switch rule.Field {
				case domain.FieldName:
					answer = sim.opts.Name
				case domain.FieldAge:
					answer = sim.opts.Age
				}
			}
		}
		fmt.Fprintf(sim.out, "> %s\n", answer)
		return answer, nil
	}

	fmt.Fprintf(sim.out, "%s > ", snap.Input.Placeholder)
	return sim.readLine()
}

func (sim *simulator) choiceAnswer(snap domain.Snapshot) (string, error) {
	choices := snap.Input.Choices
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices offered at %s", snap.Step)
	}
	if sim.opts.Auto {
		fmt.Fprintf(sim.out, "> [%s]\n", choices[0])
		return choices[0], nil
	}

	for i, label := range choices {
		fmt.Fprintf(sim.out, "  %d) %s\n", i+1, label)
	}
	fmt.Fprint(sim.out, "escolha > ")
	line, err := sim.readLine()
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(line); convErr == nil && n >= 1 && n <= len(choices) {
		return choices[n-1], nil
	}
	return line, nil
}

func (sim *simulator) readLine() (string, error) {
	line, err := sim.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
