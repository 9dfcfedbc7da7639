// Package mock serves canned provider threads for local runs of the trust
// service.
package mock

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stoik/trustlayer/internal/models"
)

var (
	firstNames = []string{"John", "Jane", "Bob", "Alice", "Charlie", "Diana", "Eve", "Frank"}
	domains    = []string{"example.com", "company.com", "business.org", "enterprise.net"}

	cleanBodies = []string{
		"Hi, attached is the agenda for tomorrow's meeting. Let me know if anything is missing.",
		"Quick project update: the migration finished and the dashboards look good.",
		"Thanks for the feedback on the proposal, we will send a revised draft next week.",
	}
	scamBodies = []string{
		"Act now! Our investor network requires a $500 fee to pitch. Guaranteed 300% returns.",
		"Please complete the wire transfer today, this exclusive opportunity closes in 24 hours.",
		"Send the payment in gift cards or bitcoin immediately to secure your allocation.",
	}
)

// Providers are the mailbox providers the mock answers for
var Providers = []string{"google", "microsoft"}

// Store keeps threads per provider in memory
type Store struct {
	mu      sync.RWMutex
	threads map[string]map[string]models.StoredEmail
	counter int
}

// NewStore returns a store seeded with the fixture threads for every provider
func NewStore() *Store {
	s := &Store{threads: make(map[string]map[string]models.StoredEmail)}
	for _, p := range Providers {
		s.threads[p] = make(map[string]models.StoredEmail)
		for _, e := range fixtures() {
			s.threads[p][e.ThreadID] = e
		}
	}
	return s
}

func fixtures() []models.StoredEmail {
	now := time.Now().UTC()
	return []models.StoredEmail{
		{
			MessageID:    "msg-scam-1",
			ThreadID:     "thread-scam",
			From:         "partner@angel-syndicate.test",
			To:           "founder@example.com",
			Subject:      "URGENT: exclusive investor opportunity",
			Snippet:      "Pay the $2,000 pitch fee to present to our investors",
			Body:         "Act now! To pitch to our investors you must pay a $2,000 listing fee by wire transfer. Our members see guaranteed 500% ROI.",
			Headers:      map[string][]string{"Authentication-Results": {"mx.example.com; spf=fail smtp.mailfrom=angel-syndicate.test; dkim=none; dmarc=fail"}},
			MessageCount: 1,
			ReceivedAt:   now.Add(-2 * time.Hour),
		},
		{
			MessageID:    "msg-clean-1",
			ThreadID:     "thread-clean",
			From:         "billing@example.com",
			To:           "founder@example.com",
			Subject:      "Invoice for October",
			Snippet:      "Please find the invoice attached",
			Body:         "Hello, please find the October invoice attached. Payment terms are net 30 as usual.",
			Headers:      map[string][]string{"Authentication-Results": {"mx.example.com; spf=pass smtp.mailfrom=example.com; dkim=pass header.d=example.com; dmarc=pass header.from=example.com"}},
			MessageCount: 3,
			ReceivedAt:   now.Add(-time.Hour),
		},
	}
}

// GetThread returns the latest message of a thread
func (s *Store) GetThread(provider, threadID string) (models.StoredEmail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads, ok := s.threads[provider]
	if !ok {
		return models.StoredEmail{}, false, fmt.Errorf("unknown provider %q", provider)
	}
	e, ok := threads[threadID]
	return e, ok, nil
}

// ThreadIDs lists thread ids for a provider, newest first
func (s *Store) ThreadIDs(provider string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := s.threads[provider]
	ids := make([]string, 0, len(threads))
	for id := range threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return threads[ids[i]].ReceivedAt.After(threads[ids[j]].ReceivedAt)
	})
	return ids
}

// PutThread stores e under its thread id, replacing any previous message
func (s *Store) PutThread(provider string, e models.StoredEmail) (string, error) {
	if e.From == "" {
		return "", fmt.Errorf("from is required")
	}
	if e.MessageID == "" {
		e.MessageID = uuid.NewString()
	}
	if e.ThreadID == "" {
		e.ThreadID = e.MessageID
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	threads, ok := s.threads[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	threads[e.ThreadID] = e
	return e.ThreadID, nil
}

// AddThreads generates n random threads, roughly a third of them scams.
// It returns the thread ids created.
func (s *Store) AddThreads(provider string, n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("numThreads must be at least 1")
	}

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s.mu.Lock()
		s.counter++
		idx := s.counter
		s.mu.Unlock()

		id, err := s.PutThread(provider, generateThread(idx))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func generateThread(index int) models.StoredEmail {
	name := firstNames[index%len(firstNames)]
	domain := domains[index%len(domains)]

	body := cleanBodies[rand.Intn(len(cleanBodies))]
	auth := fmt.Sprintf("mx.%s; spf=pass smtp.mailfrom=%s; dkim=pass header.d=%s; dmarc=pass", domain, domain, domain)
	if index%3 == 0 {
		body = scamBodies[rand.Intn(len(scamBodies))]
		auth = fmt.Sprintf("mx.%s; spf=softfail smtp.mailfrom=%s; dmarc=fail", domain, domain)
	}

	return models.StoredEmail{
		MessageID:    uuid.NewString(),
		ThreadID:     fmt.Sprintf("thread-%d", index),
		From:         fmt.Sprintf("%s.%d@%s", name, index, domain),
		Subject:      fmt.Sprintf("Message %d from %s", index, name),
		Snippet:      body[:min(len(body), 60)],
		Body:         body,
		Headers:      map[string][]string{"Authentication-Results": {auth}},
		MessageCount: 1 + rand.Intn(3),
		ReceivedAt:   time.Now().UTC().Add(-time.Duration(rand.Intn(3600)) * time.Second),
	}
}
