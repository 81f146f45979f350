package telemetry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boltdb/bolt"

	"github.com/pthm-cable/flappy/neural"
)

const championsBucket = "champions"

var (
	// ErrUnknownBucket is returned when the champions bucket does not exist yet.
	ErrUnknownBucket = errors.New("unknown bucket")
	// ErrNoChampion is returned when no champion was stored for a generation.
	ErrNoChampion = errors.New("no champion stored")
)

// ChampionStore persists the best genome of every generation in a bolt
// database, keyed by generation number.
type ChampionStore struct {
	db *bolt.DB
}

// OpenChampionStore opens (or creates) the bolt file at path.
func OpenChampionStore(path string) (*ChampionStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening champion store: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(championsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating champions bucket: %w", err)
	}
	return &ChampionStore{db: db}, nil
}

// Reset drops every stored champion. Generation numbers restart at zero
// with each training run, so a new run starts from an empty bucket.
func (s *ChampionStore) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(championsBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("dropping champions: %w", err)
		}
		_, err := tx.CreateBucket([]byte(championsBucket))
		return err
	})
}

// Put stores the champion of a generation, replacing any previous one.
func (s *ChampionStore) Put(rec neural.GenomeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling champion: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(championsBucket))
		if b == nil {
			return ErrUnknownBucket
		}
		return b.Put(itob(rec.Generation), data)
	})
}

// Get returns the champion of a generation.
func (s *ChampionStore) Get(generation int) (neural.GenomeRecord, error) {
	var rec neural.GenomeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(championsBucket))
		if b == nil {
			return ErrUnknownBucket
		}
		v := b.Get(itob(generation))
		if v == nil {
			return fmt.Errorf("generation %d: %w", generation, ErrNoChampion)
		}
		return json.Unmarshal(v, &rec)
	})
	return rec, err
}

// Best returns the fittest champion across all stored generations.
func (s *ChampionStore) Best() (neural.GenomeRecord, error) {
	var best neural.GenomeRecord
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(championsBucket))
		if b == nil {
			return ErrUnknownBucket
		}
		return b.ForEach(func(k, v []byte) error {
			var rec neural.GenomeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("generation %d: %w", btoi(k), err)
			}
			if !found || rec.Fitness > best.Fitness {
				best, found = rec, true
			}
			return nil
		})
	})
	if err != nil {
		return best, err
	}
	if !found {
		return best, ErrNoChampion
	}
	return best, nil
}

// Generations returns the stored generation numbers in ascending order.
func (s *ChampionStore) Generations() ([]int, error) {
	var gens []int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(championsBucket))
		if b == nil {
			return ErrUnknownBucket
		}
		return b.ForEach(func(k, _ []byte) error {
			gens = append(gens, btoi(k))
			return nil
		})
	})
	return gens, err
}

// Close closes the database.
func (s *ChampionStore) Close() error {
	return s.db.Close()
}

// itob encodes a generation as a big-endian key so bolt iterates in order.
func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int {
	return int(binary.BigEndian.Uint64(b))
}
