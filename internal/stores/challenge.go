package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersionV1 = 1
)

var (
	ErrChallengeNotFound         = errors.New("challenge not found")
	ErrChallengeSuperseded       = errors.New("challenge superseded")
	ErrChallengeExpired          = errors.New("challenge expired")
	ErrChallengeMismatch         = errors.New("challenge code mismatch")
	ErrChallengeAttemptsExceeded = errors.New("challenge attempts exceeded")
	ErrChallengeBackend          = errors.New("challenge redis unavailable")
)

// consumeChallengeLua atomically checks supersession, expiry and the code hash
// of a challenge record, deleting it on success or on terminal failure.
// KEYS[1] = record key
// KEYS[2] = current-challenge pointer key for the email
// ARGV[1] = challenge token
// ARGV[2] = provided hash (32 bytes)
// ARGV[3] = max attempts (int string)
// ARGV[4] = current unix timestamp (int string)
// ARGV[5] = "1" to compare the code hash, "0" to accept any code
//
// Returns:
//
//	record bytes on success
//	error string: "not_found", "superseded", "expired", "attempts_exceeded", "mismatch"
var consumeChallengeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local current = redis.call('GET', KEYS[2])
if current ~= ARGV[1] then
  redis.call('DEL', KEYS[1])
  return {err='superseded'}
end

local providedHash = ARGV[2]
local maxAttempts = tonumber(ARGV[3])
local nowUnix = tonumber(ARGV[4])

-- version(1) attempts(2 big-endian) expiresAt(8 big-endian) emailLen(2) email hash(32)
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local attempts = string.byte(data, 2) * 256 + string.byte(data, 3)

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 4, 11)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowUnix > expiresAt then
  redis.call('DEL', KEYS[1], KEYS[2])
  return {err='expired'}
end

local emailLen = string.byte(data, 12) * 256 + string.byte(data, 13)
local hashOffset = 14 + emailLen
local storedHash = string.sub(data, hashOffset, hashOffset + 31)

if ARGV[5] == '1' and storedHash ~= providedHash then
  attempts = attempts + 1
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1], KEYS[2])
    return {err='attempts_exceeded'}
  end
  local newData = string.sub(data, 1, 1) .. string.char(math.floor(attempts / 256), attempts % 256) .. string.sub(data, 4)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1], KEYS[2])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1], KEYS[2])
return data
`)

// ChallengeRecord is a pending email verification challenge.
type ChallengeRecord struct {
	Email     string
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
}

// ChallengeStore persists email challenges keyed by challenge token and
// tracks the single current challenge per email.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *ChallengeStore {
	if prefix == "" {
		prefix = "wsim"
	}
	if now == nil {
		now = time.Now
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *ChallengeStore) key(token string) string {
	return s.prefix + ":ch:" + token
}

func (s *ChallengeStore) currentKey(email string) string {
	return s.prefix + ":chc:" + normalizeEmail(email)
}

// Save stores record under token and makes it the current challenge for its
// email, superseding any earlier one.
func (s *ChallengeStore) Save(ctx context.Context, token string, record *ChallengeRecord, ttl time.Duration) error {
	record.Email = normalizeEmail(record.Email)
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(token), encoded, ttl)
		pipe.Set(ctx, s.currentKey(record.Email), token, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Current returns the token of the live challenge for email.
func (s *ChallengeStore) Current(ctx context.Context, email string) (string, error) {
	token, err := s.redis.Get(ctx, s.currentKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrChallengeNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return token, nil
}

// Consume verifies providedHash against the challenge stored under token.
// A token that is no longer the current challenge for email fails with
// ErrChallengeSuperseded. A mismatch counts an attempt.
func (s *ChallengeStore) Consume(
	ctx context.Context,
	email, token string,
	providedHash [32]byte,
	maxAttempts int,
) (*ChallengeRecord, error) {
	return s.consume(ctx, email, token, &providedHash, maxAttempts)
}

// Claim consumes the current challenge under token without comparing a
// code. Supersession and expiry still apply.
func (s *ChallengeStore) Claim(ctx context.Context, email, token string) (*ChallengeRecord, error) {
	return s.consume(ctx, email, token, nil, 1)
}

func (s *ChallengeStore) consume(
	ctx context.Context,
	email, token string,
	providedHash *[32]byte,
	maxAttempts int,
) (*ChallengeRecord, error) {
	check := "0"
	var hash [32]byte
	if providedHash != nil {
		check = "1"
		hash = *providedHash
	}
	result, err := consumeChallengeLua.Run(ctx, s.redis,
		[]string{s.key(token), s.currentKey(email)},
		token,
		string(hash[:]),
		maxAttempts,
		s.now().Unix(),
		check,
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrChallengeNotFound
		case "superseded":
			return nil, ErrChallengeSuperseded
		case "expired":
			return nil, ErrChallengeExpired
		case "attempts_exceeded":
			return nil, ErrChallengeAttemptsExceeded
		case "mismatch":
			return nil, ErrChallengeMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrChallengeBackend)
	}

	record, decErr := decodeChallengeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, decErr)
	}

	// Lua string comparison is not constant-time.
	if providedHash != nil && subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrChallengeMismatch
	}
	if record.Email != normalizeEmail(email) {
		return nil, ErrChallengeSuperseded
	}

	return record, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := writeString(&buf, record.Email); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &ChallengeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if record.Email, err = readString(reader); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
