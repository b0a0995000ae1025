package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/webpilot-ai/webpilot/internal/tasks"
)

const (
	plannerSystemPrompt = "You are the planner sub-agent for an autonomous browser assistant. " +
		"Produce a concise 4-6 step plan focused on concrete browser actions " +
		"(which pages to open, what to inspect, what decision to make)."
	navigatorSystemPrompt = "You are the navigator. Imagine you control the real browser: " +
		"describe steps, verifications, and possible branches."
	researcherSystemPrompt = "You are the researcher. Prepare a concise report about progress, " +
		"risks and recommended next steps."
)

// Executor drives planner, navigator and researcher stages around the LLM and
// delegates the browser work to the injected Driver. It implements
// tasks.Executor and tasks.Interrupter.
type Executor struct {
	llm      ChatClient
	sentinel *Sentinel
	driver   Driver

	mu           sync.Mutex
	activeTaskID string
}

func NewExecutor(llm ChatClient, sentinel *Sentinel, driver Driver) *Executor {
	if driver == nil {
		driver = NewScriptedDriver()
	}
	return &Executor{llm: llm, sentinel: sentinel, driver: driver}
}

func (e *Executor) Execute(ctx context.Context, tc *tasks.Context) error {
	instruction := strings.TrimSpace(tc.Instructions())
	e.setActive(tc.TaskID())
	defer e.setActive("")

	window := NewWindow(10)
	window.Add("User task: "+instruction, map[string]string{"channel": tc.Metadata()["channel"]})

	tc.Log("Received a new task. Initializing planner pipeline.", "info", nil)

	if e.sentinel != nil {
		if result := e.sentinel.Inspect(instruction); result.Decision == DecisionRequireConfirmation {
			prompt := fmt.Sprintf(
				"This task may lead to dangerous actions (%s). Confirm we can proceed (reply 'yes' to continue).",
				result.Reason,
			)
			answer, err := tc.RequestUserInput(prompt)
			if err != nil {
				if errors.Is(err, tasks.ErrCancelled) {
					return nil
				}
				return err
			}
			switch strings.ToLower(strings.TrimSpace(answer)) {
			case "yes", "y":
				tc.Log("User explicitly approved continuing with the risky operation.", "info", nil)
			default:
				return tc.Fail("user declined to approve the potentially dangerous task")
			}
		}
	}

	if tc.IsCancelled() {
		return nil
	}
	plan, err := e.llm.Chat(ctx, []Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Task: %s\nContext:\n%s", instruction, window.AsPrompt())},
	}, 0.2)
	if err != nil {
		return fmt.Errorf("llm error: %w", err)
	}
	plan = strings.TrimSpace(plan)
	tc.Log("Planner:\n"+plan, "info", nil)
	window.Add(plan, map[string]string{"stage": "planner"})

	if tc.IsCancelled() {
		return nil
	}
	notes, err := e.llm.Chat(ctx, []Message{
		{Role: "system", Content: navigatorSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Use the data below to reason about the agent plan.\nTask: %s\nPlan:\n%s\nContext:\n%s",
			instruction, plan, window.AsPrompt(),
		)},
	}, 0.35)
	if err != nil {
		return fmt.Errorf("llm error: %w", err)
	}
	notes = strings.TrimSpace(notes)
	tc.Log("Navigator notes:\n"+notes, "info", nil)
	window.Add(notes, map[string]string{"stage": "navigator"})

	if tc.IsCancelled() {
		return nil
	}
	report, err := e.driver.Run(ctx, instruction, Hooks{
		Log: func(message string, metadata map[string]string) {
			clean, _ := RedactSensitive(message)
			tc.Log(clean, "info", metadata)
		},
		AskUser: tc.RequestUserInput,
	})
	if err != nil {
		return fmt.Errorf("browser run failed: %w", err)
	}
	report, _ = RedactSensitive(report)
	tc.Log("Browser report:\n"+report, "info", nil)
	window.Add(report, map[string]string{"stage": "browser"})

	if tc.IsCancelled() {
		return nil
	}
	summary, err := e.llm.Chat(ctx, []Message{
		{Role: "system", Content: researcherSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"Summarize the insights from the information below.\nPlan:\n%s\nNavigator:\n%s\nBrowser:\n%s\nContext:\n%s",
			plan, notes, report, window.AsPrompt(),
		)},
	}, 0.1)
	if err != nil {
		return fmt.Errorf("llm error: %w", err)
	}
	return tc.Complete(humanizeSummary(strings.TrimSpace(summary)))
}

// Interrupt stops the browser run when the cancelled task is the active one.
func (e *Executor) Interrupt(taskID string) {
	e.mu.Lock()
	active := e.activeTaskID
	e.mu.Unlock()
	if active == taskID {
		e.driver.Stop()
	}
}

func (e *Executor) setActive(taskID string) {
	e.mu.Lock()
	e.activeTaskID = taskID
	e.mu.Unlock()
}

var failureMarkers = []string{
	"no results",
	"could not",
	"need to try",
	"didn't find",
	"failed",
	"not available",
}

// humanizeSummary softens empty-handed reports so the final message suggests
// a follow-up instead of a bare negative.
func humanizeSummary(summary string) string {
	lowered := strings.ToLower(summary)
	for _, marker := range failureMarkers {
		if strings.Contains(lowered, marker) {
			return "The task ran but came back empty-handed: " + summary +
				" Consider retrying with a different site or a narrower request."
		}
	}
	return summary
}
