package alerts

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/strands-sre/strands/pkg/models"
)

// AlertMasker redacts sensitive substrings from an inbound alert's free-text
// fields before they are fingerprinted, stored, or surfaced downstream.
// pkg/masking.Service satisfies this.
type AlertMasker interface {
	MaskAlertData(data string) string
}

// Normalizer maps provider-native alerts onto the canonical model: severity
// mapping, service extraction, SHA-256 fingerprinting, and a dedup window
// that drops repeats of the same fingerprint seen too recently.
type Normalizer struct {
	severityMaps map[string]SeverityMap
	dedupWindow  time.Duration
	masker       AlertMasker
	now          func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

const defaultDedupWindow = 60 * time.Second

// NewNormalizer builds a Normalizer. severityMaps is keyed by provider name;
// a provider absent from the map falls back to models.ParseSeverity on its
// native string. A zero dedupWindow defaults to 60s. masker may
// be nil, in which case alert descriptions pass through unmasked.
func NewNormalizer(severityMaps map[string]SeverityMap, dedupWindow time.Duration, masker AlertMasker) *Normalizer {
	if dedupWindow <= 0 {
		dedupWindow = defaultDedupWindow
	}
	return &Normalizer{
		severityMaps: severityMaps,
		dedupWindow:  dedupWindow,
		masker:       masker,
		now:          time.Now,
		seen:         map[string]time.Time{},
	}
}

// Normalize maps each alert to its canonical form and drops duplicates
// whose fingerprint was already seen within the dedup window. Order is
// preserved among survivors.
func (n *Normalizer) Normalize(alerts []models.Alert) []models.NormalisedAlert {
	out := make([]models.NormalisedAlert, 0, len(alerts))
	for _, a := range alerts {
		if n.masker != nil {
			a.Description = n.masker.MaskAlertData(a.Description)
		}
		canonicalSeverity := n.mapSeverity(a.Provider, a.Severity)
		canonicalService := extractService(a)
		fingerprint := fingerprintFor(a, canonicalService)
		a.Fingerprint = fingerprint

		if n.isDuplicate(fingerprint) {
			continue
		}

		out = append(out, models.NormalisedAlert{
			Alert:             a,
			CanonicalService:  canonicalService,
			CanonicalSeverity: canonicalSeverity,
			Validation:        models.Valid(),
		})
	}
	return out
}

func (n *Normalizer) mapSeverity(provider, native string) models.Severity {
	if sm, ok := n.severityMaps[provider]; ok {
		if mapped, ok := sm[native]; ok {
			if sev, ok := models.ParseSeverity(mapped); ok {
				return sev
			}
		}
	}
	if sev, ok := models.ParseSeverity(strings.ToLower(native)); ok {
		return sev
	}
	return models.SeverityInfo
}

func (n *Normalizer) isDuplicate(fingerprint string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now().UTC()
	if last, ok := n.seen[fingerprint]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	n.seen[fingerprint] = now
	return false
}

// extractService resolves the owning service from a "service" label, or
// falls back to the provider-supplied Service field.
func extractService(a models.Alert) string {
	if svc, ok := a.Labels["service"]; ok && svc != "" {
		return svc
	}
	return a.Service
}

// fingerprintFor computes a SHA-256 fingerprint over the alert's identity-
// bearing fields, so the same underlying condition reported twice (same
// provider, service, description, and label set) collapses to one
// fingerprint regardless of map iteration order.
func fingerprintFor(a models.Alert, canonicalService string) string {
	keys := make([]string, 0, len(a.Labels))
	for k := range a.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(a.Provider))
	h.Write([]byte{0})
	h.Write([]byte(canonicalService))
	h.Write([]byte{0})
	h.Write([]byte(a.Description))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(a.Labels[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}
