package vocab

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"wordspark-server/internal/models"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

// Bank holds the curated word lists. It is loaded once at startup and
// treated as read-only afterwards; only the sampling RNG is guarded.
type Bank struct {
	general []models.VocabularyWord
	byTopic map[string][]models.VocabularyWord

	rngLock sync.Mutex
	rng     *rand.Rand

	logger *zap.Logger
}

// NewBank creates an empty Bank. Call LoadFromDir before serving.
func NewBank(logger *zap.Logger) *Bank {
	if logger == nil {
		log.Fatal().Msg("Logger is nil for vocabulary Bank")
	}
	return &Bank{
		byTopic: make(map[string][]models.VocabularyWord),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.Named("VocabularyBank"),
	}
}

// NewBankFromWords builds a Bank directly from word records, grouping them
// by topic affinity. Used by tests and embedded defaults.
func NewBankFromWords(words []models.VocabularyWord, seed int64) *Bank {
	b := &Bank{
		byTopic: make(map[string][]models.VocabularyWord),
		rng:     rand.New(rand.NewSource(seed)),
		logger:  zap.NewNop(),
	}
	b.addWords(words)
	return b
}

func (b *Bank) addWords(words []models.VocabularyWord) {
	for _, w := range words {
		if w.Word == "" {
			continue
		}
		if w.TopicAffinity == "" {
			b.general = append(b.general, w)
		} else {
			topic := strings.ToLower(w.TopicAffinity)
			b.byTopic[topic] = append(b.byTopic[topic], w)
		}
	}
}

// LoadFromDir reads every *.json word list in dir. Each file holds an array
// of word records; records with a topic affinity go into that topic's list.
func (b *Bank) LoadFromDir(dir string) error {
	b.logger.Info("Loading vocabulary word lists...", zap.String("dir", dir))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read vocabulary directory '%s': %w", dir, err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read word list '%s': %w", entry.Name(), err)
		}
		var words []models.VocabularyWord
		if err := json.Unmarshal(data, &words); err != nil {
			return fmt.Errorf("failed to parse word list '%s': %w", entry.Name(), err)
		}
		b.addWords(words)
		count += len(words)
	}

	if count == 0 {
		return fmt.Errorf("no vocabulary words found in '%s'", dir)
	}

	b.logger.Info("Vocabulary word lists loaded",
		zap.Int("words", count),
		zap.Int("general", len(b.general)),
		zap.Int("topics", len(b.byTopic)))
	return nil
}

// SelectWords returns up to count words from the general pool plus the
// topic pool (when the topic is recognized), excluding already-asked words.
// The selection is uniform-random over the filtered pool and targets a
// roughly even split between difficulty tiers 2 and 3. When fewer than
// count candidates remain it returns whatever is available.
func (b *Bank) SelectWords(topic string, excluded map[string]struct{}, count int) []models.VocabularyWord {
	if count <= 0 {
		return nil
	}

	var tier2, tier3 []models.VocabularyWord
	seen := make(map[string]struct{})
	appendCandidate := func(w models.VocabularyWord) {
		key := strings.ToLower(w.Word)
		if _, dup := seen[key]; dup {
			return
		}
		if _, ex := excluded[key]; ex {
			return
		}
		seen[key] = struct{}{}
		if w.DifficultyTier == 3 {
			tier3 = append(tier3, w)
		} else {
			tier2 = append(tier2, w)
		}
	}

	for _, w := range b.general {
		appendCandidate(w)
	}
	if topic != "" {
		for _, w := range b.byTopic[strings.ToLower(topic)] {
			appendCandidate(w)
		}
	}

	b.rngLock.Lock()
	b.rng.Shuffle(len(tier2), func(i, j int) { tier2[i], tier2[j] = tier2[j], tier2[i] })
	b.rng.Shuffle(len(tier3), func(i, j int) { tier3[i], tier3[j] = tier3[j], tier3[i] })
	b.rngLock.Unlock()

	// Even tier split first, leftovers from whichever tier still has words.
	want2 := (count + 1) / 2
	if want2 > len(tier2) {
		want2 = len(tier2)
	}
	want3 := count - want2
	if want3 > len(tier3) {
		want3 = len(tier3)
	}

	selected := make([]models.VocabularyWord, 0, count)
	selected = append(selected, tier2[:want2]...)
	selected = append(selected, tier3[:want3]...)

	for _, rest := range [][]models.VocabularyWord{tier2[want2:], tier3[want3:]} {
		for _, w := range rest {
			if len(selected) >= count {
				break
			}
			selected = append(selected, w)
		}
	}

	return selected
}

// Lookup finds a word record by its text, case-insensitively, searching the
// general pool and every topic pool.
func (b *Bank) Lookup(word string) (models.VocabularyWord, bool) {
	key := strings.ToLower(word)
	for _, w := range b.general {
		if strings.ToLower(w.Word) == key {
			return w, true
		}
	}
	for _, pool := range b.byTopic {
		for _, w := range pool {
			if strings.ToLower(w.Word) == key {
				return w, true
			}
		}
	}
	return models.VocabularyWord{}, false
}

// RandomDefinitions returns up to count definitions from words other than
// excludeWord, for building distractor options.
func (b *Bank) RandomDefinitions(excludeWord string, count int) []string {
	var pool []models.VocabularyWord
	key := strings.ToLower(excludeWord)
	for _, w := range b.general {
		if strings.ToLower(w.Word) != key && w.Definition != "" {
			pool = append(pool, w)
		}
	}
	for _, topicPool := range b.byTopic {
		for _, w := range topicPool {
			if strings.ToLower(w.Word) != key && w.Definition != "" {
				pool = append(pool, w)
			}
		}
	}

	b.rngLock.Lock()
	b.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	b.rngLock.Unlock()

	if count > len(pool) {
		count = len(pool)
	}
	defs := make([]string, 0, count)
	for _, w := range pool[:count] {
		defs = append(defs, w.Definition)
	}
	return defs
}

// SelectBestWord picks the word to build a question about from candidate
// bolded words. Lowercase-initial words win over capitalized ones, since
// capitalized words are usually character or place names. If every
// candidate is capitalized the first one is used.
func SelectBestWord(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		runes := []rune(c)
		if len(runes) > 0 && unicode.IsLower(runes[0]) {
			return c, true
		}
	}
	return candidates[0], true
}
