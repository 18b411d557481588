package compress

import (
	"github.com/exploopio/artifact/pkg/schema"
)

// Strategy represents the transport strategy based on payload analysis.
type Strategy string

const (
	// StrategyDirect sends the payload as encoded.
	// Used for small documents (few items, small encoding).
	StrategyDirect Strategy = "direct"

	// StrategyCompress compresses the payload before sending it.
	// Used for large bounties and assertions.
	StrategyCompress Strategy = "compress"
)

// AnalyzerConfig configures the payload analyzer thresholds.
type AnalyzerConfig struct {
	// MinItemsForCompression is the minimum number of collection items
	// (artifacts or verdicts) to consider compression.
	// Default: 64
	MinItemsForCompression int

	// MinSizeForCompression is the minimum payload size (bytes) to consider compression.
	// Default: 4KB (4096)
	MinSizeForCompression int

	// MinSavingsPercent is the smallest saving worth the decompression cost.
	// If compression saves less, the payload is sent directly.
	// Default: 10
	MinSavingsPercent float64
}

// DefaultAnalyzerConfig returns the default analyzer configuration.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		MinItemsForCompression: 64,
		MinSizeForCompression:  4 * 1024, // 4KB
		MinSavingsPercent:      10,
	}
}

// Analyzer analyzes payloads and determines whether to compress them.
type Analyzer struct {
	config     *AnalyzerConfig
	compressor *Compressor
}

// NewAnalyzer creates a new payload analyzer.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = DefaultAnalyzerConfig()
	}
	return &Analyzer{
		config:     config,
		compressor: DefaultZSTD,
	}
}

// AnalysisResult contains the result of payload analysis.
type AnalysisResult struct {
	// Strategy is the recommended strategy.
	Strategy Strategy `json:"strategy"`

	// Algorithm is the recommended compression, AlgorithmNone for StrategyDirect.
	Algorithm Algorithm `json:"algorithm"`

	// Metrics about the payload.
	Kind       schema.Kind `json:"kind"`
	ItemsCount int         `json:"items_count"`
	RawSize    int         `json:"raw_size"`

	// Compression estimate (only if compression was considered).
	EstimatedCompressedSize int     `json:"estimated_compressed_size,omitempty"`
	EstimatedRatio          float64 `json:"estimated_ratio,omitempty"`

	// Reason explains why this strategy was chosen.
	Reason string `json:"reason"`
}

// Analyze analyzes a document and returns the recommended strategy.
// The document must pass its consistency check.
func (a *Analyzer) Analyze(doc schema.Document) (*AnalysisResult, error) {
	rawData, err := schema.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return a.AnalyzePayload(doc.Kind(), ItemsCount(doc), rawData), nil
}

// AnalyzePayload analyzes an already encoded payload of kind holding
// items collection entries.
func (a *Analyzer) AnalyzePayload(kind schema.Kind, items int, payload []byte) *AnalysisResult {
	result := &AnalysisResult{
		Kind:       kind,
		ItemsCount: items,
		RawSize:    len(payload),
		Strategy:   StrategyDirect,
		Algorithm:  AlgorithmNone,
	}

	if !a.ShouldCompress(items, len(payload)) {
		result.Reason = "payload within direct limits"
		return result
	}

	compressed, err := a.compressor.Compress(payload)
	if err != nil || len(payload) == 0 {
		result.Reason = "payload could not be compressed"
		return result
	}
	result.EstimatedCompressedSize = len(compressed)
	result.EstimatedRatio = float64(len(compressed)) / float64(len(payload))

	// Re-evaluate: a poor ratio is not worth the decompression cost
	if (1-result.EstimatedRatio)*100 < a.config.MinSavingsPercent {
		result.Reason = "compression saves too little"
		return result
	}

	result.Strategy = StrategyCompress
	result.Algorithm = a.compressor.Algorithm()
	if items >= a.config.MinItemsForCompression {
		result.Reason = "items count exceeds compression threshold"
	} else {
		result.Reason = "raw size exceeds compression threshold"
	}
	return result
}

// ShouldCompress returns true if compression should be considered.
func (a *Analyzer) ShouldCompress(itemsCount, rawSize int) bool {
	return itemsCount >= a.config.MinItemsForCompression ||
		rawSize >= a.config.MinSizeForCompression
}

// ItemsCount returns the number of collection entries of doc; leaf
// documents count as one.
func ItemsCount(doc schema.Document) int {
	switch d := doc.(type) {
	case *schema.Bounty:
		return d.Len()
	case *schema.Assertion:
		return d.Len()
	}
	return 1
}

// DefaultAnalyzer is the default payload analyzer.
var DefaultAnalyzer = NewAnalyzer(nil)
