package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Assassin199108/pokemon-agent-backend/config"
	"github.com/Assassin199108/pokemon-agent-backend/internal/corpus"
	"github.com/Assassin199108/pokemon-agent-backend/internal/mcp"
	"github.com/Assassin199108/pokemon-agent-backend/internal/scraper"
	"github.com/Assassin199108/pokemon-agent-backend/internal/telemetry"
	"github.com/Assassin199108/pokemon-agent-backend/provider"
	"github.com/Assassin199108/pokemon-agent-backend/tools/web_search"
	"github.com/Assassin199108/pokemon-agent-backend/utils"
)

const observationLimit = 4000

// ErrBudgetExhausted is returned when the loop runs out of iterations or time
var ErrBudgetExhausted = fmt.Errorf("agent budget exhausted without a final answer")

// RunResult is the outcome of one reasoning run
type RunResult struct {
	Answer     json.RawMessage `json:"answer,omitempty"`
	Iterations int             `json:"iterations"`
	ElapsedMS  int64           `json:"elapsed_ms"`
}

// Agent drives a bounded think, act, observe loop over the tool registry
type Agent struct {
	llm       provider.LLMProvider
	model     string
	cfg       config.AgentConfig
	tools     []Tool
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

type Options struct {
	LLM       provider.LLMProvider
	Router    provider.Router
	Config    config.AgentConfig
	Search    config.SearchConfig
	Searcher  web_search.WebSearcher
	Scraper   *scraper.Scraper
	Corpus    *corpus.Corpus
	Remote    *mcp.Manager // nil when no tool hosts are configured
	Telemetry *telemetry.Telemetry
}

func New(opts Options) *Agent {
	tools := []Tool{
		&searchTool{searcher: opts.Searcher, cfg: opts.Search},
		&scrapeTool{scraper: opts.Scraper},
		&corpusTool{corpus: opts.Corpus},
	}
	if opts.Remote != nil {
		for _, rt := range opts.Remote.Tools() {
			tools = append(tools, &remoteTool{manager: opts.Remote, host: rt.Host, desc: rt.Desc})
		}
	}
	return &Agent{
		llm:       opts.LLM,
		model:     opts.Router.ModelFor("reasoning"),
		cfg:       opts.Config,
		tools:     tools,
		telemetry: opts.Telemetry,
		logger:    log.New(log.Writer(), "[AGENT] ", log.LstdFlags),
	}
}

type step struct {
	thought     string
	action      string
	actionInput string
	observation string
}

type modelAction struct {
	Thought     string                 `json:"thought"`
	Action      string                 `json:"action"`
	ActionInput map[string]interface{} `json:"action_input"`
	FinalAnswer json.RawMessage        `json:"final_answer"`
}

// Run gathers structured data for one pokemon name autonomously. The loop
// stops at the first final answer, max iterations, or the wall clock budget.
func (a *Agent) Run(ctx context.Context, name string) (RunResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.MaxExecutionTime)
	defer cancel()
	t0 := time.Now()

	var history []step
	for iter := 1; iter <= a.cfg.MaxIterations; iter++ {
		if ctx.Err() != nil {
			break
		}

		prompt := a.buildPrompt(name, history)
		out, inTok, outTok, err := a.llm.GenerateWithTokens(ctx, prompt, a.model, map[string]interface{}{
			"temperature": a.cfg.Temperature,
			"max_tokens":  1400,
		})
		if a.telemetry != nil {
			cost := a.llm.CalculateCost(inTok, outTok, a.model)
			a.telemetry.RecordLLMCall(a.model, inTok, outTok, cost, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return a.finish(iter, t0, false), fmt.Errorf("model call: %w", err)
		}

		var action modelAction
		if err := json.Unmarshal([]byte(utils.ExtractFirstJSON(out)), &action); err != nil {
			a.logger.Printf("iteration %d: unparseable reply", iter)
			history = append(history, step{
				observation: "your previous reply was not valid JSON, answer with exactly one JSON object",
			})
			continue
		}

		if len(action.FinalAnswer) > 0 {
			a.logger.Printf("final answer after %d iterations", iter)
			res := a.finish(iter, t0, true)
			res.Answer = action.FinalAnswer
			return res, nil
		}

		tool := a.findTool(action.Action)
		if tool == nil {
			history = append(history, step{
				thought:     action.Thought,
				action:      action.Action,
				observation: fmt.Sprintf("unknown tool %q, available: %s", action.Action, a.toolNames()),
			})
			continue
		}

		observation, err := tool.Call(ctx, action.ActionInput)
		if err != nil {
			observation = fmt.Sprintf(`{"error": %q}`, err.Error())
		}
		inputJSON, _ := json.Marshal(action.ActionInput)
		history = append(history, step{
			thought:     action.Thought,
			action:      action.Action,
			actionInput: string(inputJSON),
			observation: utils.Truncate(observation, observationLimit),
		})
	}

	return a.finish(len(history), t0, false), ErrBudgetExhausted
}

func (a *Agent) finish(iterations int, t0 time.Time, success bool) RunResult {
	elapsed := time.Since(t0)
	if a.telemetry != nil {
		a.telemetry.RecordAgentRun(iterations, elapsed, success)
	}
	return RunResult{Iterations: iterations, ElapsedMS: elapsed.Milliseconds()}
}

func (a *Agent) findTool(name string) Tool {
	for _, t := range a.tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func (a *Agent) toolNames() string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name()
	}
	return strings.Join(names, ", ")
}

func (a *Agent) buildPrompt(name string, history []step) string {
	var sb strings.Builder
	sb.WriteString("You are a research agent gathering pokedex data for the Pokemon \"")
	sb.WriteString(name)
	sb.WriteString("\".\n\nTools:\n")
	for _, t := range a.tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
	}
	sb.WriteString(`
Reply with exactly ONE JSON object per turn, either an action:
  {"thought": "...", "action": "<tool name>", "action_input": {...}}
or, when you have enough information, the final answer:
  {"thought": "...", "final_answer": {"basic_info": {...}, "types": [...], "abilities": [...], "base_stats": {...}, "evolution_chain": "...", "game_info": {...}}}

Use "N/A" for fields you could not find. Do not invent data.
`)

	if len(history) > 0 {
		sb.WriteString("\nPrevious steps:\n")
		for i, s := range history {
			fmt.Fprintf(&sb, "Step %d:\n", i+1)
			if s.thought != "" {
				fmt.Fprintf(&sb, "  thought: %s\n", s.thought)
			}
			if s.action != "" {
				fmt.Fprintf(&sb, "  action: %s %s\n", s.action, s.actionInput)
			}
			fmt.Fprintf(&sb, "  observation: %s\n", s.observation)
		}
	}
	sb.WriteString("\nNext step:")
	return sb.String()
}
