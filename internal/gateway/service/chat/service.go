// Package chat runs FastFormBuild and FastFill turns: load the thread, ask
// the model, validate and merge its form, then commit or reject.
package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"fastform/internal/apperr"
	"fastform/internal/conversation"
	"fastform/internal/form"
	"fastform/internal/gateway/entity"
	annotationrepo "fastform/internal/gateway/repository/annotation"
	pagerepo "fastform/internal/gateway/repository/page"
	"fastform/internal/llm"
	"fastform/internal/util/jsonutil"
)

const (
	DefaultHistoryLimit = 40
	DefaultLLMTimeout   = 90 * time.Second

	pageMIMEType = "image/png"
	defaultReply = "Form updated."
)

// UserChecker reports NotFound for unknown users.
type UserChecker interface {
	Exists(ctx context.Context, id entity.UserID) error
}

type Config struct {
	MaxDepth     int
	HistoryLimit int
	LLMTimeout   time.Duration
}

type Deps struct {
	State       *conversation.State
	Users       UserChecker
	Annotations annotationrepo.Store
	Pages       pagerepo.Store
	LLM         llm.Client
}

type Service struct {
	state       *conversation.State
	users       UserChecker
	annotations annotationrepo.Store
	pages       pagerepo.Store
	llm         llm.Client
	sanitizer   *bluemonday.Policy
	cfg         Config
}

func New(deps Deps, cfg Config) *Service {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = form.DefaultMaxDepth
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	return &Service{
		state:       deps.State,
		users:       deps.Users,
		annotations: deps.Annotations,
		pages:       deps.Pages,
		llm:         deps.LLM,
		sanitizer:   bluemonday.StrictPolicy(),
		cfg:         cfg,
	}
}

type BuildRequest struct {
	ThreadID  string
	UserID    entity.UserID
	Content   string
	FormPages []string
}

type FillRequest struct {
	ThreadID         string
	UserID           entity.UserID
	Content          string
	LoadAnnotationID *int64
}

// Build runs a structure-authoring turn.
func (s *Service) Build(ctx context.Context, req BuildRequest) (Result, error) {
	pages, err := decodePages(req.FormPages)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, turnInput{
		workflow: entity.WorkflowBuild,
		mode:     form.ModeStructure,
		threadID: req.ThreadID,
		userID:   req.UserID,
		content:  req.Content,
		pages:    pages,
	})
}

// Fill runs a value-filling turn. LoadAnnotationID seeds a thread that has
// no canonical document yet.
func (s *Service) Fill(ctx context.Context, req FillRequest) (Result, error) {
	return s.run(ctx, turnInput{
		workflow:   entity.WorkflowFill,
		mode:       form.ModeValue,
		threadID:   req.ThreadID,
		userID:     req.UserID,
		content:    req.Content,
		annotation: req.LoadAnnotationID,
	})
}

type turnInput struct {
	workflow   entity.Workflow
	mode       form.Mode
	threadID   string
	userID     entity.UserID
	content    string
	pages      [][]byte
	annotation *int64
}

func (s *Service) run(ctx context.Context, in turnInput) (Result, error) {
	in.threadID = strings.TrimSpace(in.threadID)
	in.userID = entity.NormalizeUserID(string(in.userID))
	if in.threadID == "" {
		return Result{}, apperr.MalformedInput("thread_id is required")
	}
	if in.userID.IsZero() {
		return Result{}, apperr.MalformedInput("user_id is required")
	}
	text := s.sanitize(in.content)
	if text == "" && len(in.pages) == 0 {
		return Result{}, apperr.MalformedInput("content is required")
	}
	if err := s.users.Exists(ctx, in.userID); err != nil {
		return Result{}, err
	}

	turn, err := s.state.Begin(ctx, in.threadID)
	if err != nil {
		return Result{}, apperr.Upstream(err, "thread %s is busy", in.threadID)
	}
	defer turn.End()

	thread, exists, err := turn.Thread(ctx)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	if exists && thread.UserID != in.userID {
		return Result{}, apperr.Conflict("thread %s belongs to another user", in.threadID)
	}
	prior, err := turn.CanonicalDocument(ctx)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	if in.mode == form.ModeValue {
		if prior, err = s.seed(ctx, prior, in); err != nil {
			return Result{}, err
		}
	}
	priorText, err := encodeDocument(prior)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}

	history, err := turn.History(ctx)
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	keys, err := s.storePages(ctx, in.threadID, in.pages)
	if err != nil {
		return Result{}, apperr.Internal(err).WithFormData(priorText)
	}
	userMsg, err := turn.Append(ctx, entity.Message{
		UserID:   in.userID,
		Role:     entity.RoleUser,
		Workflow: in.workflow,
		Text:     text,
		Pages:    keys,
	})
	if err != nil {
		return Result{}, apperr.Internal(err).WithFormData(priorText)
	}

	reject := func(e *apperr.Error) (Result, error) {
		e = e.WithFormData(priorText)
		turn.Reject(string(e.Kind), e.Message, priorText)
		log.Printf("chat: %s turn rejected on thread %s: %v", in.workflow, in.threadID, e)
		return Result{}, e
	}

	req, err := s.buildRequest(ctx, in.mode, prior, append(history, userMsg), in.pages)
	if err != nil {
		return reject(apperr.Internal(err))
	}
	callCtx, cancel := context.WithTimeout(llm.WithPhase(ctx, string(in.workflow)), s.cfg.LLMTimeout)
	raw, err := s.llm.GenerateJSON(callCtx, req)
	cancel()
	if err != nil {
		return reject(apperr.Upstream(err, "model call failed"))
	}
	answer, err := parseReply(raw)
	if err != nil {
		return reject(apperr.Upstream(err, "model returned an unusable reply"))
	}

	next := prior
	message := strings.TrimSpace(answer.Message)
	if answer.Action == actionForm {
		candidate, err := form.Decode(answer.Form, form.CandidateOptions(in.mode, s.cfg.MaxDepth))
		if err != nil {
			return reject(apperr.FromForm(err))
		}
		if next, err = form.Merge(prior, candidate, in.mode); err != nil {
			return reject(apperr.FromForm(err))
		}
		if message == "" {
			message = defaultReply
		}
	}

	saved, err := turn.Commit(ctx, in.userID, next, entity.Message{Workflow: in.workflow, Text: message})
	if err != nil {
		return reject(apperr.Internal(err))
	}
	return resultOf(saved)
}

// seed loads the requested annotation as the thread's starting document.
func (s *Service) seed(ctx context.Context, prior *form.Document, in turnInput) (*form.Document, error) {
	if in.annotation == nil {
		if prior == nil {
			return nil, apperr.NotFound("thread %s has no form to fill; pass load_annotation_id", in.threadID)
		}
		return prior, nil
	}
	if prior != nil {
		return nil, apperr.Conflict("thread %s already has a form; load_annotation_id is only valid on the first turn", in.threadID)
	}
	a, err := s.annotations.Get(ctx, *in.annotation)
	if err != nil {
		if errors.Is(err, annotationrepo.ErrNotFound) {
			return nil, apperr.NotFound("annotation %d not found", *in.annotation)
		}
		return nil, apperr.Internal(err)
	}
	if a.UserID != in.userID {
		return nil, apperr.NotFound("annotation %d not found", *in.annotation)
	}
	doc, err := form.Decode([]byte(a.Structure), form.Options{MaxDepth: s.cfg.MaxDepth})
	if err != nil {
		return nil, apperr.FromForm(fmt.Errorf("annotation %d: %w", a.ID, err))
	}
	return doc, nil
}

func (s *Service) sanitize(content string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(content)))
}

func (s *Service) storePages(ctx context.Context, threadID string, pages [][]byte) ([]string, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(pages))
	for _, data := range pages {
		name := uuid.NewString() + ".png"
		if err := s.pages.Put(ctx, threadID, name, data); err != nil {
			return nil, fmt.Errorf("store page: %w", err)
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// buildRequest replays the last HistoryLimit messages. Pages of the current
// message come from memory; earlier ones are read back from the page store.
func (s *Service) buildRequest(ctx context.Context, mode form.Mode, current *form.Document, history []entity.Message, fresh [][]byte) (llm.Request, error) {
	system, err := systemPrompt(promptFor(mode), current)
	if err != nil {
		return llm.Request{}, err
	}
	if len(history) > s.cfg.HistoryLimit {
		history = history[len(history)-s.cfg.HistoryLimit:]
	}
	msgs := make([]llm.Message, 0, len(history))
	for i, m := range history {
		msg := llm.Message{Role: llm.RoleUser, Text: m.Text}
		if m.Role == entity.RoleAssistant {
			msg.Role = llm.RoleAssistant
			msg.Text = assistantTurnText(m)
		}
		if i == len(history)-1 && len(fresh) > 0 {
			for _, data := range fresh {
				msg.Images = append(msg.Images, llm.Image{MIMEType: pageMIMEType, Data: data})
			}
		} else {
			for _, key := range m.Pages {
				data, err := s.pages.Get(ctx, m.ThreadID, key)
				if errors.Is(err, pagerepo.ErrNotFound) {
					log.Printf("chat: page %s/%s missing from store, skipped", m.ThreadID, key)
					continue
				}
				if err != nil {
					return llm.Request{}, fmt.Errorf("load page %s: %w", key, err)
				}
				msg.Images = append(msg.Images, llm.Image{MIMEType: pageMIMEType, Data: data})
			}
		}
		msgs = append(msgs, msg)
	}
	return llm.Request{System: system, Messages: msgs}, nil
}

// assistantTurnText replays an assistant message in the reply envelope the
// model is asked to produce.
func assistantTurnText(m entity.Message) string {
	b, err := jsonutil.MarshalNoEscape(reply{Action: actionMessage, Message: m.Text})
	if err != nil {
		return m.Text
	}
	return string(b)
}

func decodePages(raw []string) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(raw))
	for i, s := range raw {
		s = strings.TrimSpace(s)
		if comma := strings.Index(s, ","); strings.HasPrefix(s, "data:") && comma >= 0 {
			s = s[comma+1:]
		}
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, apperr.MalformedInput("form_pages[%d] is not valid base64: %v", i, err)
		}
		if len(data) == 0 {
			return nil, apperr.MalformedInput("form_pages[%d] is empty", i)
		}
		out = append(out, data)
	}
	return out, nil
}

func encodeDocument(doc *form.Document) (string, error) {
	if doc == nil {
		return "", nil
	}
	b, err := form.Encode(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
