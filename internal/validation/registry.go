package validation

import (
	"sync"

	"github.com/ginjaninja78/ci-load-engine/internal/ciload"
)

// Registry tracks invoice keys across a batch so the same invoice is not
// delivered twice from different input files. It is safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	seen map[ciload.InvoiceKey]string
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[ciload.InvoiceKey]string)}
}

// Claim registers every invoice key of the entry under source. If any key was
// already claimed by another source nothing is registered and the returned
// error wraps ErrDuplicateInvoice.
func (r *Registry) Claim(source string, entry ciload.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]ciload.InvoiceKey, 0, len(entry.Invoices))
	for _, inv := range entry.Invoices {
		key := inv.Key(entry.FileNumber)
		if owner, ok := r.seen[key]; ok && owner != source {
			return &ValidationError{
				Severity: SeverityError,
				Field:    "invoiceNo",
				Value:    key.String(),
				Message:  "invoice already claimed by " + owner,
				Invoice:  key.InvoiceNumber,
				Err:      ErrDuplicateInvoice,
			}
		}
		keys = append(keys, key)
	}
	for _, key := range keys {
		r.seen[key] = source
	}
	return nil
}

// Release forgets the keys claimed by source, e.g. after its generation
// failed and it may be retried.
func (r *Registry) Release(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, owner := range r.seen {
		if owner == source {
			delete(r.seen, key)
		}
	}
}

// Len returns the number of claimed keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
