package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobRecordVersionV1 = 1
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobBackend  = errors.New("job redis unavailable")
	ErrJobConflict = errors.New("job update conflict")
)

// Job status bytes. They mirror the ordering of gateway.JobStatus.
const (
	JobPending    byte = 0
	JobProcessing byte = 1
	JobSucceeded  byte = 2
	JobFailed     byte = 3
)

// JobRecord is a transfer job as held by the simulated backend.
type JobRecord struct {
	JobID         string
	UserID        string
	NetworkID     string
	TokenAddress  string
	Recipient     string
	Amount        string
	Status        byte
	Checks        uint16
	TxHash        string
	FailureReason string
	CreatedAt     int64
}

// Terminal reports whether the record has reached a final status.
func (r *JobRecord) Terminal() bool {
	return r.Status == JobSucceeded || r.Status == JobFailed
}

// JobStore persists transfer jobs.
type JobStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewJobStore(redisClient redis.UniversalClient, prefix string) *JobStore {
	if prefix == "" {
		prefix = "wsim"
	}
	return &JobStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *JobStore) key(jobID string) string {
	return s.prefix + ":job:" + jobID
}

// Create stores a new job. An existing record with the same id is never
// overwritten.
func (s *JobStore) Create(ctx context.Context, record *JobRecord, ttl time.Duration) error {
	encoded, err := encodeJobRecord(record)
	if err != nil {
		return err
	}
	ok, err := s.redis.SetNX(ctx, s.key(record.JobID), encoded, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJobBackend, err)
	}
	if !ok {
		return ErrJobConflict
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	data, err := s.redis.Get(ctx, s.key(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrJobBackend, err)
	}
	return decodeJobRecord(data)
}

// Advance counts one status check against jobID and lets decide move the
// record forward. Terminal records are returned unchanged and decide is not
// called. The updated record is written back with its remaining TTL.
func (s *JobStore) Advance(ctx context.Context, jobID string, decide func(*JobRecord)) (*JobRecord, error) {
	const maxRetries = 4
	key := s.key(jobID)

	for i := 0; i < maxRetries; i++ {
		var out *JobRecord
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			record, err := decodeJobRecord(data)
			if err != nil {
				return err
			}
			if record.Terminal() {
				out = record
				return nil
			}

			record.Checks++
			prev := record.Status
			decide(record)
			if record.Status < prev {
				record.Status = prev
			}

			ttl, err := tx.PTTL(ctx, key).Result()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = 0
			}
			updated, err := encodeJobRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if ttl > 0 {
					pipe.Set(ctx, key, updated, ttl)
				} else {
					pipe.Set(ctx, key, updated, redis.KeepTTL)
				}
				return nil
			})
			if err != nil {
				return err
			}
			out = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrJobNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrJobBackend, err)
		}
		return out, nil
	}

	return nil, ErrJobConflict
}

func encodeJobRecord(record *JobRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(jobRecordVersionV1)
	buf.WriteByte(record.Status)
	if err := binary.Write(&buf, binary.BigEndian, record.Checks); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}
	for _, field := range []string{
		record.JobID,
		record.UserID,
		record.NetworkID,
		record.TokenAddress,
		record.Recipient,
		record.Amount,
		record.TxHash,
		record.FailureReason,
	} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeJobRecord(data []byte) (*JobRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != jobRecordVersionV1 {
		return nil, errors.New("invalid job record version")
	}

	record := &JobRecord{}
	if record.Status, err = reader.ReadByte(); err != nil {
		return nil, err
	}
	if record.Status > JobFailed {
		return nil, errors.New("invalid job record status")
	}
	if err := binary.Read(reader, binary.BigEndian, &record.Checks); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}
	for _, field := range []*string{
		&record.JobID,
		&record.UserID,
		&record.NetworkID,
		&record.TokenAddress,
		&record.Recipient,
		&record.Amount,
		&record.TxHash,
		&record.FailureReason,
	} {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}

	return record, nil
}
