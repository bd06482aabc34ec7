package query

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/markdave123-py/Docsage/internal/core"
	"github.com/markdave123-py/Docsage/internal/core/memory"
	"github.com/markdave123-py/Docsage/internal/models"
)

const (
	// GlobalTopK is the default passage count for corpus-wide questions.
	GlobalTopK = 4

	// DocumentTopK is raised for single-document questions to compensate
	// for the narrower corpus.
	DocumentTopK = 8
)

// Distinct user-visible outcomes. Callers must never collapse these into a
// generic failure: each asks the user to do something different.
const (
	MsgNothingToSearch = "You haven't uploaded any documents yet, so there is nothing to search. Upload a document first."
	MsgNoMatch         = "I couldn't find anything relevant to your question in the indexed documents."
	MsgNoContentScoped = "I couldn't find any content for that document. Try re-uploading."
	MsgNotRelated      = "That question doesn't appear to be related to this document. I can only answer questions about its content."
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrDocumentProcessing = errors.New("document is still processing")
	ErrDocumentFailed     = errors.New("document processing failed")
)

const answerSystemPrompt = `You are a helpful assistant who answers user questions from context retrieved from uploaded documents.

Rules:
1. Answer ONLY using the provided context.
2. If the context doesn't contain the answer, say you don't have enough information.
3. Always mention the page number(s) where you found the information.
4. Keep the answer clear and well-structured.`

const guardSystemPrompt = `You are a relevance classifier. Given context retrieved from a document and a user question, answer with exactly one word: "yes" if the question can plausibly be answered from the context, "no" otherwise.`

// Searcher is the slice of the vector index the pipeline needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int, documentID string) ([]models.ScoredPassage, error)
}

// DocumentStore supplies the document rows the pipeline checks before
// answering scoped questions.
type DocumentStore interface {
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
}

// Pipeline answers questions from indexed passages: search, order by page,
// fold in conversation history, generate, checkpoint.
type Pipeline struct {
	index  Searcher
	llm    core.LLMProvider
	memory *memory.ConversationMemory
	docs   DocumentStore
}

func NewPipeline(index Searcher, llm core.LLMProvider, mem *memory.ConversationMemory, docs DocumentStore) *Pipeline {
	return &Pipeline{index: index, llm: llm, memory: mem, docs: docs}
}

// Query answers a question against every indexed document of the user.
func (p *Pipeline) Query(ctx context.Context, userID, question string, k int) (*models.QueryAnswer, error) {
	if k <= 0 {
		k = GlobalTopK
	}

	hits, err := p.index.Search(ctx, question, k, "")
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	if len(hits) == 0 {
		docs, derr := p.docs.ListDocumentsByUser(ctx, userID)
		if derr == nil && len(docs) == 0 {
			return &models.QueryAnswer{Answer: MsgNothingToSearch}, nil
		}
		return &models.QueryAnswer{Answer: MsgNoMatch}, nil
	}

	sortByPage(hits)
	contextBlock := buildContext(hits)

	answer, err := p.llm.Generate(ctx, answerSystemPrompt+"\n\nContext:\n"+contextBlock, question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &models.QueryAnswer{Answer: answer, ContextUsed: contextBlock}, nil
}

// DocumentQuery answers a question scoped to one document, optionally
// continuing a conversation thread. Unrelated questions are redirected by
// the relevance guard instead of generating a context-free answer.
func (p *Pipeline) DocumentQuery(ctx context.Context, documentID, threadID, question string) (*models.DocumentAnswer, error) {
	doc, err := p.docs.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	switch doc.Status {
	case models.DocStatusFailed:
		return nil, fmt.Errorf("%w: %s", ErrDocumentFailed, doc.Error)
	case models.DocStatusQueued, models.DocStatusProcessing:
		return nil, ErrDocumentProcessing
	}

	hits, err := p.index.Search(ctx, question, DocumentTopK, documentID)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	if len(hits) == 0 {
		return &models.DocumentAnswer{Answer: MsgNoContentScoped, ThreadID: threadID}, nil
	}

	sortByPage(hits)
	contextBlock := buildContext(hits)

	if !p.isRelated(ctx, contextBlock, question) {
		if threadID != "" {
			if merr := p.memory.Append(ctx, threadID, documentID, question, MsgNotRelated); merr != nil {
				log.Printf("query: record redirect on thread %s: %v", threadID, merr)
			}
		}
		return &models.DocumentAnswer{Answer: MsgNotRelated, ThreadID: threadID, NotRelated: true}, nil
	}

	historyBlock := ""
	if threadID != "" {
		turns, herr := p.memory.RecentHistory(ctx, threadID)
		if herr != nil {
			return nil, fmt.Errorf("load history: %w", herr)
		}
		historyBlock = buildHistory(turns)
	}

	system := answerSystemPrompt + "\n\nContext:\n" + contextBlock
	if historyBlock != "" {
		system += "\n\n" + historyBlock + "\nIf the question is a follow-up (\"tell me more\", \"what about X\"), resolve it against the previous conversation."
	}

	answer, err := p.llm.Generate(ctx, system, question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if threadID != "" {
		if merr := p.memory.Append(ctx, threadID, documentID, question, answer); merr != nil {
			log.Printf("query: record exchange on thread %s: %v", threadID, merr)
		}
	}

	return &models.DocumentAnswer{Answer: answer, ThreadID: threadID}, nil
}

// isRelated runs the yes/no guard call. A guard failure counts as related:
// a broken classifier must not block answering.
func (p *Pipeline) isRelated(ctx context.Context, contextBlock, question string) bool {
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer yes or no.", contextBlock, question)
	verdict, err := p.llm.Generate(ctx, guardSystemPrompt, prompt)
	if err != nil {
		log.Printf("query: relevance guard failed, answering anyway: %v", err)
		return true
	}
	return !strings.HasPrefix(strings.ToLower(strings.TrimSpace(verdict)), "no")
}

func sortByPage(hits []models.ScoredPassage) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Page < hits[j].Page
	})
}

func buildContext(hits []models.ScoredPassage) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("Page %d (%s): %s", h.Page, h.FileName, h.Text)
	}
	return strings.Join(blocks, "\n\n")
}

func buildHistory(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, t := range turns {
		role := "User"
		if t.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, truncate(t.Content, 500))
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
