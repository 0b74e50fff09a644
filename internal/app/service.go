// Package app wires the tally engine to its inputs and outputs and owns
// the request flow of the bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tallybot/internal/adapters/directory"
	"github.com/okian/tallybot/internal/adapters/history"
	"github.com/okian/tallybot/internal/adapters/mq/queue"
	"github.com/okian/tallybot/internal/adapters/mq/worker"
	"github.com/okian/tallybot/internal/adapters/source"
	"github.com/okian/tallybot/internal/config"
	"github.com/okian/tallybot/internal/domain/access"
	"github.com/okian/tallybot/internal/domain/dedupe"
	"github.com/okian/tallybot/internal/domain/label"
	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/internal/domain/report"
	"github.com/okian/tallybot/internal/domain/tally"
	"github.com/okian/tallybot/pkg/logger"
	"github.com/okian/tallybot/pkg/metrics"
)

// QueryRequest is a synchronous tally request for an explicit stream.
type QueryRequest struct {
	RequesterID int64  `json:"requester_id" validate:"required"`
	Stream      string `json:"stream" validate:"required"`
	Query       string `json:"query"`
}

// Service answers tally requests.
type Service struct {
	cfg       *config.Config
	dir       directory.Directory
	src       source.Source
	rule      *directory.RoleRule
	schemes   map[string]label.Scheme
	engine    *tally.Engine
	formatter *report.Formatter
	excluded  map[string]struct{}

	history history.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool

	mu      sync.RWMutex
	started bool

	logger logger.Logger
}

// New builds a service for cfg. Every configured stream's labeling scheme
// is constructed here, so a bad scheme configuration fails at startup.
func New(cfg *config.Config, dir directory.Directory, src source.Source, opts ...Option) (*Service, error) {
	const op = "app.New"

	rule, err := directory.NewRoleRule(cfg.ReviewerRule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	schemes := make(map[string]label.Scheme, len(cfg.Streams))
	for _, st := range cfg.Streams {
		sch, err := label.New(st.LabelingScheme, st.LabelerConfig)
		if err != nil {
			return nil, fmt.Errorf("%s: stream %q: %w", op, st.StreamName, err)
		}
		schemes[st.StreamName] = sch
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedSenders))
	for _, name := range cfg.ExcludedSenders {
		excluded[name] = struct{}{}
	}

	s := &Service{
		cfg:       cfg,
		dir:       dir,
		src:       src,
		rule:      rule,
		schemes:   schemes,
		formatter: report.NewFormatter(report.WithNoun(cfg.ReportNoun)),
		excluded:  excluded,
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = history.NewMemory(history.WithLimit(cfg.HistoryLimit))
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	}
	s.engine = tally.NewEngine(tally.WithLogger(s.logger.Named("tally")))
	return s, nil
}

// Start launches the queue and worker pool for inbound bot messages.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s, worker.WithLogger(s.logger))
	s.pool.Start(ctx)
	s.started = true

	s.logger.Info(ctx, "tally service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.cfg.QueueSize),
		logger.Int("streams", len(s.schemes)),
	)
	return nil
}

// Stop closes intake and waits for queued messages to be handled.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	err := s.pool.Shutdown(ctx)
	s.logger.Info(ctx, "tally service stopped")
	return err
}

// SeenAndRecord reports whether the inbound message id was already seen,
// recording it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id int64) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordRequestDuplicate()
	}
	return seen
}

// Unrecord forgets id so the message can be retried.
func (s *Service) Unrecord(ctx context.Context, id int64) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue accepts an inbound bot message for asynchronous handling. A
// message id is handled at most once; repeats fail with ErrDuplicate.
func (s *Service) Enqueue(ctx context.Context, in model.Inbound) error {
	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if s.SeenAndRecord(ctx, in.ID) {
		return fmt.Errorf("%w: %d", ErrDuplicate, in.ID)
	}
	if err := q.Enqueue(ctx, in); err != nil {
		s.Unrecord(ctx, in.ID)
		if errors.Is(err, queue.ErrFull) || errors.Is(err, queue.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		return err
	}
	metrics.RecordRequest("inbound")
	return nil
}

// Process implements worker.Handler. The reply is delivered through the
// requester's history.
func (s *Service) Process(ctx context.Context, in model.Inbound) error {
	_, err := s.Handle(ctx, in)
	return err
}

// Handle answers one inbound bot message. Failures still produce a reply
// naming the cause; the error is returned alongside it.
func (s *Service) Handle(ctx context.Context, in model.Inbound) (Reply, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRequestLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	log := s.logger.With(
		logger.String("request_id", uuid.NewString()),
		logger.Int64("message_id", in.ID),
		logger.Int64("sender_id", in.SenderID),
	)

	content := access.Normalize(in.Content)
	if slices.Contains(strings.Fields(content), "clear") {
		if err := s.history.Reset(ctx, in.SenderID); err != nil {
			log.Error(ctx, "clear history failed", logger.Error(err))
			return s.fail(ctx, log, in.SenderID, err)
		}
		log.Info(ctx, "history cleared")
		return Reply{Kind: ReplyCleared}, nil
	}

	requester, err := s.lookup(ctx, in.SenderID)
	if err != nil {
		return s.fail(ctx, log, in.SenderID, err)
	}
	s.remember(ctx, log, in.SenderID, history.DirectionIn, in.Content)

	stream, query, err := s.resolveStream(in, content)
	if err != nil {
		return s.fail(ctx, log, in.SenderID, err)
	}
	return s.answer(ctx, log, requester, stream, query)
}

// Query answers a synchronous request for an explicit stream.
func (s *Service) Query(ctx context.Context, req QueryRequest) (Reply, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRequestLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	metrics.RecordRequest("query")
	log := s.logger.With(
		logger.String("request_id", uuid.NewString()),
		logger.Int64("sender_id", req.RequesterID),
		logger.String("stream", req.Stream),
	)

	requester, err := s.lookup(ctx, req.RequesterID)
	if err != nil {
		return s.fail(ctx, log, req.RequesterID, err)
	}
	s.remember(ctx, log, req.RequesterID, history.DirectionIn, req.Query)
	stream, ok := s.cfg.StreamByName(req.Stream)
	if !ok {
		return s.fail(ctx, log, req.RequesterID, fmt.Errorf("%w: %q", ErrUnknownStream, req.Stream))
	}
	return s.answer(ctx, log, requester, stream, access.Normalize(req.Query))
}

// resolveStream finds the stream an inbound message is about. A stream
// message names it directly. A private message must contain the stream's
// specifier or its normalized name, which is removed to leave the query.
func (s *Service) resolveStream(in model.Inbound, content string) (config.Stream, string, error) {
	if in.Kind == model.KindStream {
		if st, ok := s.cfg.StreamByName(in.Stream); ok {
			return st, content, nil
		}
		return config.Stream{}, "", fmt.Errorf("%w: stream %q", ErrNoStream, in.Stream)
	}
	for _, st := range s.cfg.Streams {
		for _, token := range []string{access.Normalize(st.StreamSpecifier), access.Normalize(st.StreamName)} {
			if token == "" || !strings.Contains(content, token) {
				continue
			}
			rest := strings.ReplaceAll(content, token, " ")
			return st, strings.Join(strings.Fields(rest), " "), nil
		}
	}
	return config.Stream{}, "", ErrNoStream
}

// lookup finds the requester in the directory.
func (s *Service) lookup(ctx context.Context, requesterID int64) (directory.User, error) {
	const op = "app.lookup"

	u, err := s.dir.User(ctx, requesterID)
	switch {
	case errors.Is(err, directory.ErrUserNotFound):
		return directory.User{}, fmt.Errorf("%s: %w: %d", op, ErrUnknownRequester, requesterID)
	case err != nil:
		return directory.User{}, fmt.Errorf("%s: %w: directory: %w", op, ErrFetchFailed, err)
	}
	return u, nil
}

func (s *Service) answer(ctx context.Context, log logger.Logger, requester directory.User, stream config.Stream, query string) (Reply, error) {
	const op = "app.answer"
	requesterID := requester.ID

	users, err := s.dir.Users(ctx)
	if err != nil {
		return s.fail(ctx, log, requesterID, fmt.Errorf("%s: %w: directory: %w", op, ErrFetchFailed, err))
	}
	reviewers, err := s.reviewers(users)
	if err != nil {
		return s.fail(ctx, log, requesterID, fmt.Errorf("%s: %w", op, err))
	}

	msgs, err := s.src.FetchMessages(ctx, source.Scope{Stream: stream.StreamName})
	if err != nil {
		metrics.RecordFetchError(s.cfg.MessageBackend)
		return s.fail(ctx, log, requesterID, fmt.Errorf("%s: %w: %w", op, ErrFetchFailed, err))
	}
	metrics.UpdateMessagesFetched(len(msgs))

	isReviewer := func(id int64) bool { _, ok := reviewers[id]; return ok }
	res, err := s.engine.Tally(ctx, s.intake(msgs, stream, isReviewer), s.schemes[stream.StreamName])
	if err != nil {
		return s.fail(ctx, log, requesterID, fmt.Errorf("%s: %w", op, err))
	}

	role := access.RoleMember
	if isReviewer(requester.ID) {
		role = access.RoleReviewer
	}
	var roster []model.Author
	for _, u := range users {
		if _, bot := s.excluded[u.Name]; !bot && !isReviewer(u.ID) {
			roster = append(roster, u.Author())
		}
	}
	decision := access.Decide(access.Request{Requester: requester.Author(), Role: role, Query: query}, roster, res)

	reply, err := s.render(role, decision)
	if err != nil {
		return s.fail(ctx, log, requesterID, fmt.Errorf("%s: %w", op, err))
	}
	for _, chunk := range reply.Chunks {
		s.remember(ctx, log, requesterID, history.DirectionOut, chunk)
	}
	log.Info(ctx, "tally answered",
		logger.String("stream", stream.StreamName),
		logger.String("role", string(role)),
		logger.String("kind", string(reply.Kind)),
		logger.Int("chunks", len(reply.Chunks)),
	)
	return reply, nil
}

func (s *Service) reviewers(users []directory.User) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	for _, u := range users {
		ok, err := s.rule.IsReviewer(u)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", u.ID, err)
		}
		if ok {
			out[u.ID] = struct{}{}
		}
	}
	return out, nil
}

// intake drops messages from excluded senders and reviewers, and marks the
// ones a reviewer reacted to with the stream's invalid emoji.
func (s *Service) intake(msgs []model.Message, stream config.Stream, isReviewer func(int64) bool) []model.Message {
	kept := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, bot := s.excluded[m.Author.Name]; bot || isReviewer(m.Author.ID) {
			continue
		}
		m.Invalidated = m.Invalidated || m.MarkedBy(stream.InvalidEmoji, isReviewer)
		kept = append(kept, m)
	}
	return kept
}

func (s *Service) render(role access.Role, d access.Decision) (Reply, error) {
	var (
		kind ReplyKind
		text string
	)
	switch {
	case d.Kind == access.KindTable:
		t, err := s.formatter.Table(d.Rows)
		if err != nil {
			return Reply{}, err
		}
		kind, text = ReplyTable, t
	case role == access.RoleMember && len(d.Reports) == 1:
		kind, text = ReplyVerbose, s.formatter.Verbose(d.Reports[0])
	default:
		kind, text = ReplyVerbose, s.formatter.VerboseMany(d.Reports)
	}
	return Reply{Kind: kind, Text: text, Chunks: report.Chunk(text, s.cfg.ResponseMaxLines)}, nil
}

func (s *Service) fail(ctx context.Context, log logger.Logger, requesterID int64, err error) (Reply, error) {
	kind, text := failureText(err)
	if kind == ReplyUsage {
		log.Info(ctx, "no stream matched")
	} else {
		log.Error(ctx, "request failed", logger.Error(err))
		metrics.RecordErrorByComponent("app", errorType(err))
	}
	// Unknown requesters get a reply but no history.
	if !errors.Is(err, ErrUnknownRequester) {
		s.remember(ctx, log, requesterID, history.DirectionOut, text)
	}
	return Reply{Kind: kind, Text: text, Chunks: report.Chunk(text, s.cfg.ResponseMaxLines)}, err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrUnknownStream):
		return "unknown_stream"
	case errors.Is(err, ErrUnknownRequester):
		return "unknown_requester"
	case errors.Is(err, ErrFetchFailed):
		return "fetch_failed"
	case errors.Is(err, model.ErrMalformedMessage):
		return "malformed_message"
	}
	return "internal"
}

// remember appends to the requester's history. History is best effort: a
// store failure never fails the request.
func (s *Service) remember(ctx context.Context, log logger.Logger, requesterID int64, dir history.Direction, text string) {
	if err := s.history.Append(ctx, requesterID, history.NewEntry(dir, text)); err != nil {
		log.Warn(ctx, "history append failed", logger.Error(err))
	}
}

// History returns the requester's conversation, oldest first.
func (s *Service) History(ctx context.Context, requesterID int64) ([]history.Entry, error) {
	return s.history.List(ctx, requesterID)
}

// ClearHistory forgets the requester's conversation.
func (s *Service) ClearHistory(ctx context.Context, requesterID int64) error {
	return s.history.Reset(ctx, requesterID)
}

// Labels lists every label of the stream's scheme, ordered by deadline.
func (s *Service) Labels(stream string) ([]label.Label, error) {
	sch, ok := s.schemes[stream]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	en, ok := sch.(label.Enumerator)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotEnumerable, stream)
	}
	return en.Labels(), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]string, 0, len(s.cfg.Streams))
	for _, st := range s.cfg.Streams {
		streams = append(streams, st.StreamName)
	}
	stats := map[string]any{
		"started":        s.started,
		"streams":        streams,
		"messageBackend": s.cfg.MessageBackend,
		"historyBackend": s.cfg.HistoryBackend,
		"dedupeSize":     s.deduper.Size(),
	}
	if s.started {
		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = s.queue.Len()
		stats["queueCapacity"] = s.queue.Cap()
		metrics.UpdateQueueSize(s.queue.Len())
	}
	return stats
}
