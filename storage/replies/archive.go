// Package replies archives every reply the bot sends, keyed by message id.
package replies

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var (
	// errors
	ErrNotFound = errors.New("reply not found")

	bucket = []byte("replies")
)

type Reply struct {
	MessageID string    `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

type Archive struct {
	db *bbolt.DB
}

// Open opens (or creates) the archive file.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating archive directory")
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening reply archive")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating replies bucket")
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Put stores r, replacing any earlier reply to the same message.
func (a *Archive) Put(r Reply) error {
	if r.MessageID == "" {
		return errors.New("reply has no message id")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding reply")
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(r.MessageID), data)
	})
}

func (a *Archive) Get(messageID string) (Reply, error) {
	var r Reply
	err := a.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(messageID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &r)
	})
	if err != nil {
		if err == ErrNotFound {
			return Reply{}, err
		}
		return Reply{}, errors.Wrap(err, "reading reply")
	}
	return r, nil
}

// Count returns how many replies are archived.
func (a *Archive) Count() (int, error) {
	var n int
	err := a.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return n, err
}
