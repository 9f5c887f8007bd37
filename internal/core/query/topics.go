package query

import (
	"sort"
	"strings"

	"geoscout/internal/core/domain"
)

// topicFilters maps a lowercase topic keyword to the tag predicate that
// selects its category in the geodata index. Several keywords may point
// at the same predicate; the table is built once and never mutated.
var topicFilters = map[string]domain.TagFilter{
	"bus":         "highway=bus_stop",
	"buses":       "highway=bus_stop",
	"bus-stop":    "highway=bus_stop",
	"bus-stops":   "highway=bus_stop",
	"stop":        "highway=bus_stop",
	"stops":       "highway=bus_stop",
	"school":      "amenity=school",
	"schools":     "amenity=school",
	"restaurant":  "amenity=restaurant",
	"restaurants": "amenity=restaurant",
	"cafe":        "amenity=cafe",
	"cafes":       "amenity=cafe",
	"coffee":      "amenity=cafe",
	"supermarket": "shop=supermarket",
	"grocery":     "shop=supermarket",
	"pharmacy":    "amenity=pharmacy",
	"pharmacies":  "amenity=pharmacy",
	"hospital":    "amenity=hospital",
	"hospitals":   "amenity=hospital",
	"hotel":       "tourism=hotel",
	"hotels":      "tourism=hotel",
	"museum":      "tourism=museum",
	"museums":     "tourism=museum",
	"park":        "leisure=park",
	"parks":       "leisure=park",
	"bank":        "amenity=bank",
	"banks":       "amenity=bank",
	"fuel":        "amenity=fuel",
	"petrol":      "amenity=fuel",
	"gas":         "amenity=fuel",
	"parking":     "amenity=parking",
	"library":     "amenity=library",
	"libraries":   "amenity=library",
	"station":     "railway=station",
	"stations":    "railway=station",
	"train":       "railway=station",
	"trains":      "railway=station",
	"railway":     "railway=station",
	"bench":       "amenity=bench",
	"benches":     "amenity=bench",
	"toilet":      "amenity=toilets",
	"toilets":     "amenity=toilets",
	"restroom":    "amenity=toilets",
	"restrooms":   "amenity=toilets",
}

// Lookup resolves a topic keyword to its tag filter, case-insensitively.
func Lookup(token string) (domain.TagFilter, bool) {
	f, ok := topicFilters[strings.ToLower(token)]
	return f, ok
}

// Topics returns every supported topic keyword, sorted.
func Topics() []string {
	keys := make([]string, 0, len(topicFilters))
	for k := range topicFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TopicFilters returns the keyword-to-filter table as a sorted list of
// pairs, for listing endpoints.
func TopicFilters() []Topic {
	topics := make([]Topic, 0, len(topicFilters))
	for k, f := range topicFilters {
		topics = append(topics, Topic{Keyword: k, Filter: f})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Keyword < topics[j].Keyword })
	return topics
}

// Topic is one dictionary entry.
type Topic struct {
	Keyword string           `json:"keyword"`
	Filter  domain.TagFilter `json:"filter"`
}
