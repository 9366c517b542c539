package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
)

// fakeEinoEmbedder 记录请求文本的 Eino 接口替身
type fakeEinoEmbedder struct {
	lastTexts []string
	result    [][]float64
	err       error
}

func (f *fakeEinoEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.lastTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestNewOpenAIEmbedderRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(&config.EmbeddingConfig{Model: "text-embedding-3-small"}, nil)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestEmbedTruncatesOversizedText(t *testing.T) {
	fake := &fakeEinoEmbedder{result: [][]float64{{0.1, 0.2}}}
	s := &OpenAIEmbedder{embedder: fake, model: "test-model"}

	_, err := s.Embed(context.Background(), strings.Repeat("a", maxEmbeddingChars+500))
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(fake.lastTexts) != 1 {
		t.Fatalf("expected a single text, got %d", len(fake.lastTexts))
	}
	if n := len([]rune(fake.lastTexts[0])); n != maxEmbeddingChars {
		t.Errorf("expected text truncated to %d chars, got %d", maxEmbeddingChars, n)
	}
}

func TestEmbedEmptyResultIsError(t *testing.T) {
	fake := &fakeEinoEmbedder{result: [][]float64{}}
	s := &OpenAIEmbedder{embedder: fake, model: "test-model"}

	if _, err := s.Embed(context.Background(), "some text"); err == nil {
		t.Fatal("expected error for empty embedding result")
	}
}

func TestEmbedWrapsUpstreamError(t *testing.T) {
	upstream := errors.New("quota exceeded")
	fake := &fakeEinoEmbedder{err: upstream}
	s := &OpenAIEmbedder{embedder: fake, model: "test-model"}

	_, err := s.Embed(context.Background(), "some text")
	if !errors.Is(err, upstream) {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}
}
