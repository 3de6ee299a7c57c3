package redisservice

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const SpeechServiceRedisKey = Prefix + "speechService"

// SessionTask marks a speech session lifecycle transition.
type SessionTask string

const (
	SessionTaskStarted SessionTask = "session_started"
	SessionTaskEnded   SessionTask = "session_ended"
)

// SpeechSessionGetConnectionsByKeyId reports how many live sessions currently
// use the given subscription key.
func (s *RedisService) SpeechSessionGetConnectionsByKeyId(keyId string) (string, error) {
	keyStatus := fmt.Sprintf("%s:%s:connections", SpeechServiceRedisKey, keyId)
	conns, err := s.rc.Get(s.ctx, keyStatus).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", err
	}

	return conns, nil
}

// SpeechSessionUpdateKeyStatus adjusts the connection counter of one
// subscription key when a session starts or ends.
func (s *RedisService) SpeechSessionUpdateKeyStatus(keyId string, task SessionTask) error {
	keyStatus := fmt.Sprintf("%s:%s:connections", SpeechServiceRedisKey, keyId)
	switch task {
	case SessionTaskStarted:
		_, err := s.rc.Incr(s.ctx, keyStatus).Result()
		if err != nil {
			return err
		}
	case SessionTaskEnded:
		_, err := s.rc.Decr(s.ctx, keyStatus).Result()
		if err != nil {
			return err
		}
	}

	return nil
}

// SpeechSessionCheckUserUsage returns the start marker for a user's running
// session, empty when none exists.
func (s *RedisService) SpeechSessionCheckUserUsage(roomId, userId string) (string, error) {
	key := fmt.Sprintf("%s:%s:usage", SpeechServiceRedisKey, roomId)

	ss, err := s.rc.HGet(s.ctx, key, userId).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", err
	}

	return ss, nil
}

// SpeechSessionUsersUsage records a session start, or on end folds the
// elapsed seconds into the room's total usage inside one transaction.
func (s *RedisService) SpeechSessionUsersUsage(roomId, userId string, task SessionTask) (int64, error) {
	key := fmt.Sprintf("%s:%s:usage", SpeechServiceRedisKey, roomId)

	switch task {
	case SessionTaskStarted:
		_, err := s.rc.HSet(s.ctx, key, userId, time.Now().Unix()).Result()
		if err != nil {
			return 0, err
		}
	case SessionTaskEnded:
		var usage int64
		err := s.rc.Watch(s.ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(s.ctx, func(pipe redis.Pipeliner) error {
				var start int64
				if ss, err := tx.HGet(s.ctx, key, userId).Result(); err == nil && ss != "" {
					start, _ = strconv.ParseInt(ss, 10, 64)
				}
				if start > 0 {
					usage = time.Now().Unix() - start
					_, _ = pipe.HIncrBy(s.ctx, key, "total_usage", usage).Result()
				}
				_, _ = pipe.HDel(s.ctx, key, userId).Result()
				return nil
			})
			return err
		}, key)

		if err != nil {
			return 0, err
		}
		return usage, nil
	}

	return 0, nil
}

func (s *RedisService) SpeechSessionGetHashKeys(roomId string) ([]string, error) {
	key := fmt.Sprintf("%s:%s:usage", SpeechServiceRedisKey, roomId)
	hkeys, err := s.rc.HKeys(s.ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}

	return hkeys, nil
}

func (s *RedisService) SpeechSessionGetTotalUsageByRoomId(roomId string) (string, error) {
	key := fmt.Sprintf("%s:%s:usage", SpeechServiceRedisKey, roomId)
	return s.rc.HGet(s.ctx, key, "total_usage").Result()
}

// SpeechSessionDeleteRoom drops all usage bookkeeping of an ended room.
func (s *RedisService) SpeechSessionDeleteRoom(roomId string) error {
	key := fmt.Sprintf("%s:%s:usage", SpeechServiceRedisKey, roomId)
	_, err := s.rc.Del(s.ctx, key).Result()
	if err != nil {
		return err
	}
	return nil
}
