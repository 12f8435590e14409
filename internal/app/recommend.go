package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tavola/internal/domain"
)

const (
	maxPreferences = 500
	maxPicks       = 5
)

var languageNames = map[string]string{"en": "English", "es": "Spanish", "fr": "French"}

type MenuLoader interface {
	Load(ctx context.Context) ([]domain.MenuItem, domain.MapStats, error)
}

// RecommendationService asks the LLM to pick dishes from the live menu.
type RecommendationService struct {
	menu  MenuLoader
	llm   domain.LLM
	cache domain.Cache
	ttl   time.Duration
	sem   *semaphore.Weighted
}

// NewRecommendationService builds the service. llm nil disables it; cache may be nil.
func NewRecommendationService(menu MenuLoader, llm domain.LLM, cache domain.Cache, ttl time.Duration, maxInflight int) *RecommendationService {
	if maxInflight <= 0 {
		maxInflight = 4
	}
	return &RecommendationService{
		menu:  menu,
		llm:   llm,
		cache: cache,
		ttl:   ttl,
		sem:   semaphore.NewWeighted(int64(maxInflight)),
	}
}

// llmAnswer is the JSON shape requested in the prompt.
type llmAnswer struct {
	Summary string `json:"summary"`
	Picks   []struct {
		Name   string `json:"name"`
		Reason string `json:"reason"`
	} `json:"picks"`
}

func (s *RecommendationService) Recommend(ctx context.Context, prefs, lang string) (domain.Recommendation, error) {
	if s.llm == nil {
		return domain.Recommendation{}, domain.ErrNotConfigured
	}
	if _, ok := languageNames[lang]; !ok {
		lang = "en"
	}
	prefs = truncateRunes(strings.TrimSpace(prefs), maxPreferences)

	items, _, err := s.menu.Load(ctx)
	if err != nil {
		return domain.Recommendation{}, err
	}
	out := domain.Recommendation{Language: lang, Picks: []domain.Pick{}}
	if len(items) == 0 {
		return out, nil
	}

	key := cacheKey(lang, prefs, items)
	if s.cache != nil {
		var cached domain.Recommendation
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	if !s.sem.TryAcquire(1) {
		return domain.Recommendation{}, domain.ErrBusy
	}
	raw, err := s.llm.Complete(ctx, buildPrompt(items, prefs, lang))
	s.sem.Release(1)
	if err != nil {
		return domain.Recommendation{}, fmt.Errorf("llm: %w", err)
	}

	ans, ok := parseAnswer(raw)
	if !ok {
		log.Warn().Str("lang", lang).Msg("llm answer is not JSON, returning summary only")
		out.Summary = strings.TrimSpace(raw)
	} else {
		out.Summary = strings.TrimSpace(ans.Summary)
		out.Picks = matchPicks(items, ans)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.ttl.Seconds()))
	}
	return out, nil
}

func buildPrompt(items []domain.MenuItem, prefs, lang string) string {
	var b strings.Builder
	b.WriteString("You are the waiter of a restaurant. Recommend up to ")
	fmt.Fprintf(&b, "%d dishes from the menu below that suit the guest.\n", maxPicks)
	b.WriteString("Only use dishes from the menu and respect allergies the guest mentions.\n")
	fmt.Fprintf(&b, "Write the summary and reasons in %s.\n", languageNames[lang])
	b.WriteString(`Reply with JSON only: {"summary": "...", "picks": [{"name": "<exact English dish name>", "reason": "..."}]}`)
	b.WriteString("\n\nMenu:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "- %s [%s]", it.Name.En, it.Category)
		if len(it.Allergens) > 0 {
			fmt.Fprintf(&b, " allergens: %s", strings.Join(it.Allergens, ", "))
		}
		if it.ChefSuggestion {
			b.WriteString(" (chef's suggestion)")
		}
		if it.Description.En != "" {
			b.WriteString(": " + it.Description.En)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nGuest preferences: ")
	if prefs == "" {
		b.WriteString("none given, suggest the chef's favourites")
	} else {
		b.WriteString(prefs)
	}
	return b.String()
}

// parseAnswer tolerates prose or code fences around the JSON object.
func parseAnswer(raw string) (llmAnswer, bool) {
	var ans llmAnswer
	i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if i < 0 || j <= i {
		return ans, false
	}
	if err := json.Unmarshal([]byte(raw[i:j+1]), &ans); err != nil {
		return ans, false
	}
	return ans, true
}

func matchPicks(items []domain.MenuItem, ans llmAnswer) []domain.Pick {
	byName := make(map[string]int, len(items)*3)
	for i, it := range items {
		for _, n := range []string{it.Name.En, it.Name.Es, it.Name.Fr} {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				if _, dup := byName[n]; !dup {
					byName[n] = i
				}
			}
		}
	}
	picks := []domain.Pick{}
	seen := map[int]bool{}
	for _, p := range ans.Picks {
		i, ok := byName[strings.ToLower(strings.TrimSpace(p.Name))]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		picks = append(picks, domain.Pick{Item: items[i], Reason: strings.TrimSpace(p.Reason)})
		if len(picks) == maxPicks {
			break
		}
	}
	return picks
}

// cacheKey ignores item IDs, which change on every fetch.
func cacheKey(lang, prefs string, items []domain.MenuItem) string {
	h := sha1.New()
	h.Write([]byte(lang + "|" + strings.ToLower(prefs) + "|"))
	for _, it := range items {
		h.Write([]byte(it.Name.En + ";"))
	}
	return "reco:" + hex.EncodeToString(h.Sum(nil))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
