package ranker

import (
	"math"

	"github.com/kestrelsearch/shardquery/internal/isr"
	"github.com/kestrelsearch/shardquery/internal/segment"
)

const (
	dynamicCutoff = 0.10
	staticCutoff  = 0.25
	maxTitleLen   = 40
)

var tldScores = map[segment.TLD]float64{
	segment.TLDGov:     1.00,
	segment.TLDEdu:     0.95,
	segment.TLDOrg:     0.90,
	segment.TLDCom:     0.75,
	segment.TLDNet:     0.70,
	segment.TLDUs:      0.70,
	segment.TLDIO:      0.60,
	segment.TLDDev:     0.60,
	segment.TLDInfo:    0.40,
	segment.TLDBiz:     0.30,
	segment.TLDXYZ:     0.20,
	segment.TLDTop:     0.10,
	segment.TLDUnknown: 0.05,
}

// staticScore implements spec §4.5.2's static formula. ok is false when the
// hard titleLength cutoff or the static-score floor rejects the document.
func staticScore(attrs segment.Attributes, isUtility bool) (float64, bool) {
	if attrs.TitleLength > maxTitleLen {
		return 0, false
	}

	urlScore := math.Exp(-0.02 * float64(attrs.URLLength))
	tldScore := tldScores[attrs.TLD]
	lenDev := float64(attrs.WordCount) - 600
	lenScore := 1 / (1 + lenDev*lenDev/250000)
	titleOver := float64(attrs.TitleLength) - 10
	if titleOver < 0 {
		titleOver = 0
	}
	titleScore := math.Exp(-0.08 * titleOver)

	base := 0.35*urlScore + 0.35*tldScore + 0.15*lenScore + 0.15*titleScore
	if !attrs.English {
		base *= 0.14
	}
	if isUtilityPage(attrs.URL) && !isUtility {
		base *= 0.15
	}

	if base < staticCutoff {
		return base, false
	}
	return base, true
}

// freqTier classifies a term list's document frequencies into one of four
// tiers, per spec §4.5.2's "frequency tier based on fraction of terms with
// tf >= 0.01" rule.
func freqTier(tfs []float64) float64 {
	if len(tfs) == 0 {
		return 0
	}
	frequent := 0
	for _, tf := range tfs {
		if tf >= 0.01 {
			frequent++
		}
	}
	frac := float64(frequent) / float64(len(tfs))
	switch {
	case frac >= 1.0:
		return 0.57
	case frac >= 0.70:
		return 0.29
	case frequent > 0:
		return 0.14
	default:
		return 0
	}
}

// dynamicScoreForList scores one term list (title or body) against a
// candidate's span features, per spec §4.5.2's dynamic formula.
func dynamicScoreForList(f dynamicFeatures, isTitle bool, hasURL bool) float64 {
	total := f.exactPhraseCount + f.orderedCount + f.closeCount + f.doubleCount + f.tripleCount
	var span float64
	if total > 0 {
		span = (0.55*float64(f.exactPhraseCount) +
			0.10*float64(f.orderedCount) +
			0.23*float64(f.closeCount) +
			0.08*float64(f.doubleCount) +
			0.04*float64(f.tripleCount)) / float64(total)
		if !isTitle {
			span *= (0.3 + 0.7/(1+math.Exp(-1.2*(float64(total)-4)))) *
				(0.7 + 0.3/(1+math.Exp(-4.0*(float64(f.boldHeadingCount)-1))))
		}
	}

	position := float64(f.topPositionSpans) * 1.0
	freq := freqTier(f.termFrequencies)

	dyn := 0.5*span + 0.3*position + 0.2*freq
	if hasURL && isTitle {
		dyn *= 1.2
	}
	return dyn
}

// combinedDynamic runs dynamicScoreForList over both term lists and
// combines them 0.7 title / 0.3 body, per spec §4.5.2.
func combinedDynamic(titleFeat, bodyFeat dynamicFeatures, url string, stems []string) float64 {
	hasURL := hasURLMatch(url, stems)
	titleDyn := dynamicScoreForList(titleFeat, true, hasURL)
	bodyDyn := dynamicScoreForList(bodyFeat, false, hasURL)
	return 0.7*titleDyn + 0.3*bodyDyn
}

// scoreDocument runs the full static+dynamic pipeline for one candidate,
// including the synonym retry (spec §4.5.2's last paragraph). ok is false
// if the document is rejected at any cutoff.
func scoreDocument(start, end uint32, attrs segment.Attributes, bodyTerms, titleTerms []*isr.Word, terms Terms) (float64, bool) {
	static, ok := staticScore(attrs, isUtilityQuery(terms.QueryStems))
	if !ok {
		return 0, false
	}

	titleFeat := extractDynamic(titleTerms, start, end, attrs.WordCount)
	bodyFeat := extractDynamic(bodyTerms, start, end, attrs.WordCount)
	dyn := combinedDynamic(titleFeat, bodyFeat, attrs.URL, terms.QueryStems)

	if dyn < dynamicCutoff {
		synBody, synBodyStems := filterSynonyms(bodyTerms, terms)
		synTitle, synTitleStems := filterSynonyms(titleTerms, terms)
		_ = synTitleStems
		synTitleFeat := extractDynamic(synTitle, start, end, attrs.WordCount)
		synBodyFeat := extractDynamic(synBody, start, end, attrs.WordCount)
		dynSyn := combinedDynamic(synTitleFeat, synBodyFeat, attrs.URL, synBodyStems)
		dyn = 0.4*dynSyn + 0.6*dyn
		if dyn < dynamicCutoff {
			return 0, false
		}
	}

	return 0.75*dyn + 0.25*static, true
}

// filterSynonyms returns the subset of words (and their stems) marked
// synonym in terms.Synonym, preserving index correspondence with terms.
func filterSynonyms(words []*isr.Word, terms Terms) ([]*isr.Word, []string) {
	var w []*isr.Word
	var stems []string
	for i := range words {
		if i < len(terms.Synonym) && terms.Synonym[i] {
			w = append(w, words[i])
			if i < len(terms.QueryStems) {
				stems = append(stems, terms.QueryStems[i])
			}
		}
	}
	return w, stems
}
