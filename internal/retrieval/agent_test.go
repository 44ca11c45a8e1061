package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/dwoslabs/dwos-backend/internal/domain"
	"github.com/dwoslabs/dwos-backend/internal/embedding"
	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
	"github.com/dwoslabs/dwos-backend/internal/platform/logger"
	"github.com/dwoslabs/dwos-backend/internal/vectorindex"
)

type fakeGenerator struct {
	calls []struct{ system, user string }
	reply func(system, user string) (string, error)
}

func (f *fakeGenerator) GenerateText(_ context.Context, system, user string) (string, error) {
	f.calls = append(f.calls, struct{ system, user string }{system, user})
	if f.reply != nil {
		return f.reply(system, user)
	}
	return "ok", nil
}

func testAgent(t *testing.T, gen Generator) (*Agent, *vectorindex.Index, embedding.Embedder) {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	emb := embedding.NewLexicalEmbedder(128)
	ix := vectorindex.New()
	agent, err := NewAgent(log, gen, emb, ix, 4)
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	return agent, ix, emb
}

func seedIndex(t *testing.T, ix *vectorindex.Index, emb embedding.Embedder, source string, texts ...string) {
	t.Helper()
	docID := uuid.New()
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		vec, err := emb.Embed(context.Background(), text)
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", source, i),
			DocumentID: docID,
			SourceName: source,
			PageNumber: i + 1,
			Text:       text,
			Embedding:  vec,
		})
	}
	if err := ix.Insert(chunks); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	agent, _, _ := testAgent(t, &fakeGenerator{})
	_, err := agent.Answer(context.Background(), "   ", 4)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("Answer: want ErrInvalidArgument, got %v", err)
	}
}

func TestAnswerWithoutGenerator(t *testing.T) {
	agent, _, _ := testAgent(t, nil)
	_, err := agent.Answer(context.Background(), "why is the rack hot", 4)
	if !errors.Is(err, apperrors.ErrGenerationService) {
		t.Fatalf("Answer: want ErrGenerationService, got %v", err)
	}
}

func TestAnswerEmptyIndexIsUngrounded(t *testing.T) {
	gen := &fakeGenerator{}
	agent, _, _ := testAgent(t, gen)
	res, err := agent.Answer(context.Background(), "why is the rack hot", 4)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(res.References) != 0 {
		t.Fatalf("references: want=0 got=%d", len(res.References))
	}
	if res.Answer == "" {
		t.Fatalf("expected an answer even with no context")
	}
	if len(gen.calls) != 2 {
		t.Fatalf("generator calls: want=2 got=%d", len(gen.calls))
	}
}

func TestAnswerGroundedCarriesReferences(t *testing.T) {
	gen := &fakeGenerator{reply: func(system, user string) (string, error) {
		if strings.Contains(system, "planner") {
			return "- find the thermal runbook\n- summarize steps", nil
		}
		return "Throttle GPU 4 and inspect airflow in rack A12.", nil
	}}
	agent, ix, emb := testAgent(t, gen)
	seedIndex(t, ix, emb, "thermal-runbook.pdf",
		"GPU 4 in rack A12 reports thermal alerts when inlet airflow is blocked.",
		"Quarterly invoice processing procedures for the finance team.")

	res, err := agent.Answer(context.Background(), "GPU 4 thermal alerts in rack A12", 1)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(res.References) != 1 {
		t.Fatalf("references: want=1 got=%d", len(res.References))
	}
	ref := res.References[0]
	if ref.SourceName != "thermal-runbook.pdf" || ref.PageNumber != 1 {
		t.Fatalf("wrong reference: %+v", ref)
	}
	if ref.Score <= 0 {
		t.Fatalf("score should be positive, got %v", ref.Score)
	}
	if res.Plan == "" || res.Answer == "" {
		t.Fatalf("plan and answer must both be populated")
	}
	// The respond stage must see both the plan and the retrieved text.
	respondCall := gen.calls[1].user
	if !strings.Contains(respondCall, "thermal runbook") || !strings.Contains(respondCall, "rack A12") {
		t.Fatalf("respond prompt missing plan or context: %q", respondCall)
	}
}

func TestAnswerSurfacesGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{reply: func(system, user string) (string, error) {
		return "", fmt.Errorf("model timeout")
	}}
	agent, _, _ := testAgent(t, gen)
	_, err := agent.Answer(context.Background(), "why is the rack hot", 4)
	if !errors.Is(err, apperrors.ErrGenerationService) {
		t.Fatalf("Answer: want ErrGenerationService, got %v", err)
	}
}

func TestDraftWorkOrderStrictTightensPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: func(system, user string) (string, error) {
		return `{"title":"t","steps":["s"]}`, nil
	}}
	agent, _, _ := testAgent(t, gen)

	_, _, _, err := agent.DraftWorkOrder(context.Background(), "GPU thermal alert DWOS-17", 4, false)
	if err != nil {
		t.Fatalf("DraftWorkOrder: %v", err)
	}
	loose := gen.calls[len(gen.calls)-1].user
	if strings.Contains(loose, "Return ONLY a single JSON object") {
		t.Fatalf("loose draft should not carry the strict clause")
	}

	_, _, _, err = agent.DraftWorkOrder(context.Background(), "GPU thermal alert DWOS-17", 4, true)
	if err != nil {
		t.Fatalf("DraftWorkOrder strict: %v", err)
	}
	strict := gen.calls[len(gen.calls)-1].user
	if !strings.Contains(strict, "Return ONLY a single JSON object") {
		t.Fatalf("strict draft must demand bare JSON")
	}
}
