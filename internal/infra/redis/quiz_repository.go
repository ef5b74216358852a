package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// QuizRepository caches the lightweight quiz shape the live session needs
// (duration plus ordered question IDs) in Redis and falls back to a loader on
// miss. Layout:
//
//	RPUSH quiz:{quizID}:questions {questionID}...
//	HSET  quiz:{quizID}:meta duration {seconds} title {title}
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// another goroutine may have filled the cache meanwhile
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Del(ctx, r.questionsKey(quizID))
		for _, q := range quiz.Questions {
			pipe.RPush(ctx, r.questionsKey(quizID), q.ID)
		}
		pipe.HSet(ctx, r.metaKey(quizID), "duration", quiz.Duration, "title", quiz.Title)
		if ttl > 0 {
			pipe.Expire(ctx, r.questionsKey(quizID), ttl)
			pipe.Expire(ctx, r.metaKey(quizID), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	ids, err := r.client.LRange(ctx, r.questionsKey(quizID), 0, -1).Result()
	if err != nil || len(ids) == 0 {
		return domain.Quiz{}, false
	}
	meta, err := r.client.HGetAll(ctx, r.metaKey(quizID)).Result()
	if err != nil {
		return domain.Quiz{}, false
	}

	questions := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		questions = append(questions, domain.Question{ID: id})
	}
	duration := 0
	if raw, ok := meta["duration"]; ok {
		if d, err := strconv.Atoi(raw); err == nil {
			duration = d
		}
	}
	return domain.Quiz{
		ID:        quizID,
		Title:     meta["title"],
		Duration:  duration,
		Questions: questions,
	}, true
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
