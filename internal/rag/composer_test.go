package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"econ-rag/internal/llm"
	"econ-rag/internal/rag/mocks"
	"econ-rag/internal/service"
)

func sampleEvidence() RankedEvidence {
	return RankedEvidence{
		Items: []Evidence{
			{Chunk: Chunk{ID: "1", Text: "A indústria automotiva concentra-se no ABC paulista."}, Score: 0.8734},
			{Chunk: Chunk{ID: "2", Text: "  Exportações de máquinas cresceram 12% em 2023.  "}, Score: 0.41},
		},
		Reranked: true,
	}
}

func TestComposer_EmptyEvidenceSkipsModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := NewComposer(mocks.NewMockGenerator(ctrl), ComposerConfig{})
	got, err := c.Compose(context.Background(), "q", RankedEvidence{})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got != InsufficientInformationAnswer {
		t.Errorf("Compose() = %q, want insufficient information answer", got)
	}
	if !strings.Contains(strings.ToLower(got), InsufficientInfoMarker) {
		t.Error("insufficient information answer must carry the marker")
	}
}

func TestComposer_PromptAndParams(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error) {
			if len(messages) != 2 || messages[0].Role != llm.RoleSystem || messages[1].Role != llm.RoleUser {
				t.Fatalf("unexpected messages: %+v", messages)
			}
			if !strings.Contains(messages[0].Content, InsufficientInformationAnswer) {
				t.Error("system prompt should carry the literal decline answer")
			}
			user := messages[1].Content
			for _, want := range []string{
				"Question: Onde fica a indústria automotiva?",
				"[1] (relevance 0.873) A indústria automotiva concentra-se no ABC paulista.",
				"[2] (relevance 0.410) Exportações de máquinas cresceram 12% em 2023.\n",
			} {
				if !strings.Contains(user, want) {
					t.Errorf("user message missing %q:\n%s", want, user)
				}
			}
			if params.Temperature != DefaultTemperature || params.MaxTokens != DefaultMaxTokens || params.Model != "gpt-4o" {
				t.Errorf("unexpected params: %+v", params)
			}
			if _, ok := ctx.Deadline(); !ok {
				t.Error("generation call should carry a deadline")
			}
			return "  Concentra-se no ABC paulista [1].  ", nil
		})

	c := NewComposer(gen, ComposerConfig{Model: "gpt-4o", Temperature: DefaultTemperature, Timeout: time.Minute})
	got, err := c.Compose(context.Background(), "Onde fica a indústria automotiva?", sampleEvidence())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if got != "Concentra-se no ABC paulista [1]." {
		t.Errorf("Compose() = %q", got)
	}
}

func TestComposer_GroundingContract(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{name: "cites evidence", reply: "Grew 12% [2].", want: "Grew 12% [2]."},
		{name: "declines explicitly", reply: "There is Insufficient Information to say.", want: "There is Insufficient Information to say."},
		{name: "no citation", reply: "São Paulo is the largest economy in Brazil.", want: InsufficientInformationAnswer},
		{name: "citation out of range", reply: "See [7].", want: InsufficientInformationAnswer},
		{name: "empty reply", reply: "   ", want: InsufficientInformationAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			gen := mocks.NewMockGenerator(ctrl)
			gen.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.reply, nil)

			got, err := NewComposer(gen, ComposerConfig{}).Compose(context.Background(), "q", sampleEvidence())
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compose() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComposer_GenerationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	gen := mocks.NewMockGenerator(ctrl)
	gen.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("API returned status 500"))

	got, err := NewComposer(gen, ComposerConfig{}).Compose(context.Background(), "q", sampleEvidence())
	if got != GenerationFailedAnswer {
		t.Errorf("Compose() = %q, want %q", got, GenerationFailedAnswer)
	}
	if !service.IsService(err, service.ServiceGeneration) {
		t.Errorf("error should name the generation service: %v", err)
	}
	if !errors.Is(err, service.ErrExternalService) {
		t.Errorf("error should match ErrExternalService: %v", err)
	}
}
