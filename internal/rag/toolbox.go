package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"econ-rag/internal/config"
	"econ-rag/internal/contextutil"
	"econ-rag/internal/service"
)

// Tool names exposed to external agents.
const (
	ToolConsultKnowledgeBase = "consult_knowledge_base"
	ToolComplementaryData    = "complementary_data"
	ToolSystemStatus         = "system_status"
)

// minComplementaryAnswer is the shortest complementary answer worth keeping.
const minComplementaryAnswer = 50

// complementaryQueries are phrased in Portuguese to match the indexed corpus.
var complementaryQueries = []string{
	"dados estatísticos %s São Paulo",
	"números e indicadores %s",
	"exemplos práticos %s indústria paulista",
}

// StatusReporter exposes the pipeline's read-only status.
type StatusReporter interface {
	Status(ctx context.Context) Status
}

// Tool is a named function an agent can invoke with a single text input.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	invoke func(ctx context.Context, input string) (string, error)
}

// Toolbox is a flat name to function table over the pipeline.
// AgentToolsSingle exposes only the knowledge base; AgentToolsMulti adds
// complementary data and system status.
type Toolbox struct {
	answerer Answerer
	status   StatusReporter
	tools    []Tool
}

const (
	consultDescription       = "Searches the São Paulo regional economy knowledge base. Input: a complete question about industry, trade, energy or sectors."
	complementaryDescription = "Looks up statistics, indicators and practical examples for one aspect. Input: the aspect, for example \"automotive industry\"."
	statusDescription        = "Reports whether the knowledge base is reachable and how many chunks it holds. Input is ignored."
)

// NewToolbox builds the tool table for mode.
func NewToolbox(answerer Answerer, status StatusReporter, mode config.AgentToolCount) *Toolbox {
	tb := &Toolbox{answerer: answerer, status: status}
	tb.tools = append(tb.tools, Tool{Name: ToolConsultKnowledgeBase, Description: consultDescription, invoke: tb.consultKnowledgeBase})
	if mode == config.AgentToolsMulti {
		tb.tools = append(tb.tools,
			Tool{Name: ToolComplementaryData, Description: complementaryDescription, invoke: tb.complementaryData},
			Tool{Name: ToolSystemStatus, Description: statusDescription, invoke: tb.systemStatus},
		)
	}
	return tb
}

// Tools lists the available tools in registration order.
func (tb *Toolbox) Tools() []Tool {
	out := make([]Tool, len(tb.tools))
	copy(out, tb.tools)
	return out
}

// Invoke runs the named tool. An unknown name returns an error wrapping service.ErrNotFound.
func (tb *Toolbox) Invoke(ctx context.Context, name, input string) (string, error) {
	for _, t := range tb.tools {
		if t.Name == name {
			contextutil.LoggerFromContext(ctx).InfoContext(ctx, "tool invoked", "tool", name, "input_length", len(input))
			return t.invoke(ctx, input)
		}
	}
	return "", fmt.Errorf("tool %q: %w", name, service.ErrNotFound)
}

func (tb *Toolbox) consultKnowledgeBase(ctx context.Context, input string) (string, error) {
	resp, err := tb.answerer.Query(ctx, QueryRequest{Query: input})
	if err != nil {
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return resp.Response, nil
		}
		return "", err
	}
	return resp.Response, nil
}

func (tb *Toolbox) complementaryData(ctx context.Context, input string) (string, error) {
	aspect := strings.TrimSpace(input)
	if aspect == "" {
		return InvalidQuestionAnswer, nil
	}

	found := make([]string, 0, 2)
	for _, pattern := range complementaryQueries {
		resp, err := tb.answerer.Query(ctx, QueryRequest{Query: fmt.Sprintf(pattern, aspect), NResults: 3})
		if err != nil || resp.Error != "" {
			continue
		}
		if utf8.RuneCountInString(resp.Response) > minComplementaryAnswer && !strings.Contains(strings.ToLower(resp.Response), InsufficientInfoMarker) {
			found = append(found, resp.Response)
		}
		if len(found) == 2 {
			break
		}
	}

	if len(found) == 0 {
		return fmt.Sprintf("Specific complementary data not found for %q.", aspect), nil
	}
	return strings.Join(found, " | "), nil
}

func (tb *Toolbox) systemStatus(ctx context.Context, _ string) (string, error) {
	st := tb.status.Status(ctx)

	var b strings.Builder
	b.WriteString("System status:\n")
	fmt.Fprintf(&b, "- Initialized: %s\n", yesNo(st.Initialized))
	fmt.Fprintf(&b, "- Index reachable: %s\n", yesNo(st.IndexReachable))
	fmt.Fprintf(&b, "- Collection %q exists: %s\n", st.CollectionName, yesNo(st.CollectionExists))
	fmt.Fprintf(&b, "- Indexed chunks: %d\n", st.CollectionCount)
	fmt.Fprintf(&b, "- Reranking: %s\n", enabledDisabled(st.RerankingEnabled))
	fmt.Fprintf(&b, "- Query logging: %s", enabledDisabled(st.LoggingEnabled))
	if st.CollectionError != "" {
		fmt.Fprintf(&b, "\n- Collection error: %s", st.CollectionError)
	}
	return b.String(), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func enabledDisabled(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}
