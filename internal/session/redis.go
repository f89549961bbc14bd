package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/local/paintscheme/internal/metrics"
	"github.com/local/paintscheme/internal/pipeline"
)

// RedisStore keeps sessions in Redis hashes with an idle TTL: every read
// and write pushes the expiry out again, so only abandoned sessions lapse.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const trackingSet = "paint:sessions"

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: c, ttl: ttl}, nil
}

func (s *RedisStore) key(id string) string { return fmt.Sprintf("paint:session:%s", id) }

func (s *RedisStore) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		Stage:     StageCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.write(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	res, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if len(res) == 0 {
		return nil, pipeline.New(pipeline.KindSessionNotFound, "session_id", "session %s not found", id)
	}
	// Reading a session keeps it alive.
	s.client.Expire(ctx, s.key(id), s.ttl)

	sess := &Session{ID: id, Stage: Stage(res["stage"])}
	if v := res["extracted"]; v != "" {
		_ = json.Unmarshal([]byte(v), &sess.ExtractedRefs)
	}
	sess.PreviewRef = res["preview_ref"]
	if v := res["preview_k"]; v != "" {
		sess.PreviewK, _ = strconv.Atoi(v)
	}
	if v := res["colorized"]; v != "" {
		_ = json.Unmarshal([]byte(v), &sess.ColorizedRefs)
	}
	if v := res["created"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			sess.CreatedAt = t
		}
	}
	if v := res["updated"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			sess.UpdatedAt = t
		}
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	return s.write(ctx, sess)
}

func (s *RedisStore) write(ctx context.Context, sess *Session) error {
	extracted, _ := json.Marshal(sess.ExtractedRefs)
	colorized, _ := json.Marshal(sess.ColorizedRefs)
	m := map[string]interface{}{
		"stage":       string(sess.Stage),
		"extracted":   string(extracted),
		"preview_ref": sess.PreviewRef,
		"preview_k":   sess.PreviewK,
		"colorized":   string(colorized),
		"created":     sess.CreatedAt.Format(time.RFC3339Nano),
		"updated":     sess.UpdatedAt.Format(time.RFC3339Nano),
	}
	key := s.key(sess.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, m)
	pipe.Expire(ctx, key, s.ttl)
	pipe.SAdd(ctx, trackingSet, sess.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session save: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, trackingSet, id)
	_, err := pipe.Exec(ctx)
	return err
}

// Sweep scans the tracking set for sessions whose hash has expired and
// reports each to onExpired (which cleans up the session's artifacts)
// before dropping the id from the set.
func (s *RedisStore) Sweep(ctx context.Context, onExpired func(ctx context.Context, id string)) {
	ids, err := s.client.SMembers(ctx, trackingSet).Result()
	if err != nil {
		log.Warn().Err(err).Msg("session sweep: cannot list tracked sessions")
		return
	}
	alive := 0
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			log.Warn().Err(err).Str("session", id).Msg("session sweep: existence check failed")
			continue
		}
		if exists > 0 {
			alive++
			continue
		}
		if onExpired != nil {
			onExpired(ctx, id)
		}
		s.client.SRem(ctx, trackingSet, id)
		metrics.IncSessionsExpired()
		log.Info().Str("session", id).Msg("expired session swept")
	}
	metrics.SetActiveSessions(int64(alive))
}

// StartSweeper runs Sweep on the given interval until ctx is done.
func (s *RedisStore) StartSweeper(ctx context.Context, interval time.Duration, onExpired func(ctx context.Context, id string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx, onExpired)
			}
		}
	}()
}

func (s *RedisStore) Close() error { return s.client.Close() }
