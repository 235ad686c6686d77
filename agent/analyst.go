package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/docs"
	"github.com/etnz/backtest/renderer"
)

const model = "gemini-2.5-pro"

// NewAnalyst creates the expert that answers questions about one finished
// run. Its tools expose the rendered reports and the documentation, so every
// answer is grounded on the actual simulation rather than on the model's
// idea of it.
func NewAnalyst(result *backtest.Result) *Expert {
	lib := analystFunctions(result)
	return &Expert{
		Name: "Analyst",
		Description: `This is the analyst of a finished backtest. He has access to the
		full simulation result: performance metrics, annual summary, and the complete event log.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an analyst in charge of explaining the result of a portfolio backtest.
			The simulation applied dividend withholding at source and a deferred annual
			capital-gains tax, paid the following January.

			Use the available tools to get the actual figures before answering:
			  - the summary report with the performance metrics
			  - the annual summary, one row per year
			  - the full event log, every trade, dividend, tax and shortfall
			  - the documentation topics explaining the simulation rules

			Ground every figure you give in the reports. When the user asks why a value
			moved, look for the events around that date.
		`}}},
		},
		Library: NewLibrary(lib),
	}
}

// analystFunctions exposes the reports of a result as model-callable tools.
func analystFunctions(result *backtest.Result) []Function {
	output := func(id, name, content string) *genai.FunctionResponse {
		return &genai.FunctionResponse{
			ID:       id,
			Name:     name,
			Response: map[string]any{"output": content},
		}
	}

	summary := &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Summary",
			Description: `Summary returns the headline report of the run: configuration, performance metrics, total flows, and shortfalls if any.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted summary report.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			return output(id, "Summary", renderer.SummaryMarkdown(result))
		},
	}

	annual := &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Annual",
			Description: `Annual returns the per-year report: start and end values, yearly return, withdrawals, dividends, capital tax paid and costs.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted table, one row per calendar year.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			return output(id, "Annual", renderer.AnnualMarkdown(result))
		},
	}

	events := &Func{
		Decl: &genai.FunctionDeclaration{
			Name: "Events",
			Description: `Events returns the complete event log of the run in chronological order:
			every trade, dividend, withholding, withdrawal, tax settlement, tax payment and shortfall.`,
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted table, one row per event.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			return output(id, "Events", renderer.EventsMarkdown(result))
		},
	}

	topic := &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Topic",
			Description: `Topic returns the documentation of one aspect of the simulation.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name": {
						Type:        genai.TypeString,
						Description: "The topic name: tax-model, rebalancing, withdrawals, metrics or feeds. Use '*' for all.",
					},
				},
				Required: []string{"name"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "The markdown documentation of the topic.",
			},
		},
		Body: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			name, ok := args["name"].(string)
			if !ok {
				return &genai.FunctionResponse{
					ID: id, Name: "Topic",
					Response: map[string]any{"error": fmt.Sprintf("argument 'name' is not a string but %T", args["name"])},
				}
			}
			content, err := docs.GetTopic(name)
			if err != nil {
				return &genai.FunctionResponse{
					ID: id, Name: "Topic",
					Response: map[string]any{"error": err.Error()},
				}
			}
			return output(id, "Topic", content)
		},
	}

	return []Function{summary, annual, events, topic}
}
