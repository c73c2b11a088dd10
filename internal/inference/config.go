// Package inference parses the DeepStream-flavored INI-style inference
// config file. The file format's parsing rules (unknown keys ignored,
// numeric fallback to documented defaults, "#"/";" comments) are bespoke
// enough that this package hand-rolls a line scanner rather than reaching
// for a TOML/INI library: there is no general INI format here, just a
// fixed handful of DeepStream-specific section/key names, so a scanner is
// simpler and more precise than coercing a generic parser to the quirk
// that unparsable values fall back to a default instead of erroring.
package inference

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/destenson/dsvision/internal/core"
)

// NetworkMode enumerates the [property] network-mode values.
type NetworkMode int

const (
	NetworkModeFP32 NetworkMode = 0
	NetworkModeINT8 NetworkMode = 1
	NetworkModeFP16 NetworkMode = 2
)

// ProcessMode enumerates the [property] process-mode values.
type ProcessMode int

const (
	ProcessModePrimary   ProcessMode = 1
	ProcessModeSecondary ProcessMode = 2
)

// Default numeric values used whenever a key is present but unparsable.
const (
	DefaultBatchSize           = 1
	DefaultProcessMode         = ProcessModePrimary
	DefaultInterval            = 0
	DefaultUniqueID            = 0
	DefaultNetworkMode         = NetworkModeFP32
	DefaultClusterMode         = 2
	DefaultGPUID               = 0
	DefaultPreClusterThreshold = 0.2
	DefaultNMSIoUThreshold     = 0.5
	DefaultTopK                = 20
)

// PropertyConfig is the [property] section of an inference config file.
type PropertyConfig struct {
	ONNXFile            string
	ModelEngineFile     string
	LabelFilePath       string
	BatchSize           int
	ProcessMode         ProcessMode
	NumDetectedClasses  int
	Interval            int
	UniqueID            int
	NetworkMode         NetworkMode
	ClusterMode         int
	MaintainAspectRatio bool
	SymmetricPadding    bool
	GPUID               int
}

// ClassAttrs is one [class-attrs-all] or [class-attrs-<n>] section.
type ClassAttrs struct {
	PreClusterThreshold float64
	NMSIoUThreshold     float64
	TopK                int
}

// Config is a fully parsed inference config file: the [property] section,
// the [class-attrs-all] defaults, and any per-class [class-attrs-<n>]
// overrides. A class-attrs-<n> section overrides
// pre-cluster-threshold/nms-iou-threshold/topk for class id n only,
// falling back to class-attrs-all for everything else.
type Config struct {
	Property      PropertyConfig
	ClassAttrsAll ClassAttrs
	PerClass      map[int]ClassAttrs
}

// ClassAttrsFor resolves the effective attrs for classID, overlaying any
// per-class override onto the class-attrs-all baseline field by field.
func (c Config) ClassAttrsFor(classID int) ClassAttrs {
	attrs := c.ClassAttrsAll
	override, ok := c.PerClass[classID]
	if !ok {
		return attrs
	}
	if override.PreClusterThreshold != 0 {
		attrs.PreClusterThreshold = override.PreClusterThreshold
	}
	if override.NMSIoUThreshold != 0 {
		attrs.NMSIoUThreshold = override.NMSIoUThreshold
	}
	if override.TopK != 0 {
		attrs.TopK = override.TopK
	}
	return attrs
}

// Validate enforces the one-required-of-two rule: a file lacking both
// onnx-file and model-engine-file fails validation.
func (c Config) Validate() error {
	if c.Property.ONNXFile == "" && c.Property.ModelEngineFile == "" {
		return core.NewInferenceError(core.InferenceConfigError, "neither onnx-file nor model-engine-file is set", nil)
	}
	if c.Property.BatchSize < 1 || c.Property.BatchSize > 32 {
		return core.NewInferenceError(core.InferenceConfigError, "batch-size must be in 1..32", nil)
	}
	return nil
}

const classAttrsAllSection = "class-attrs-all"
const classAttrsPrefix = "class-attrs-"
const propertySection = "property"

// Parse scans an inference config file's text: lines trimmed; "#"/";"
// comments; "[section]" toggles; unknown keys ignored; unparsable
// numerics fall back to documented defaults.
func Parse(text string) (Config, error) {
	raw := scan(text)

	cfg := Config{
		ClassAttrsAll: ClassAttrs{
			PreClusterThreshold: DefaultPreClusterThreshold,
			NMSIoUThreshold:     DefaultNMSIoUThreshold,
			TopK:                DefaultTopK,
		},
		PerClass: make(map[int]ClassAttrs),
	}

	cfg.Property = parseProperty(raw[propertySection])
	cfg.ClassAttrsAll = parseClassAttrs(raw[classAttrsAllSection], cfg.ClassAttrsAll)

	for section, kv := range raw {
		if !strings.HasPrefix(section, classAttrsPrefix) || section == classAttrsAllSection {
			continue
		}
		idStr := strings.TrimPrefix(section, classAttrsPrefix)
		classID, err := strconv.Atoi(idStr)
		if err != nil {
			continue // unknown section shape, ignored
		}
		cfg.PerClass[classID] = parseClassAttrs(kv, cfg.ClassAttrsAll)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// scan is the bespoke line scanner: trim, skip blank/comment lines, track
// the current [section], split "key=value" pairs into a map keyed by
// section name.
func scan(text string) map[string]map[string]string {
	sections := make(map[string]map[string]string)
	currentSection := ""

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
			if _, ok := sections[currentSection]; !ok {
				sections[currentSection] = make(map[string]string)
			}
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:eq]))
		value := strings.TrimSpace(line[eq+1:])
		if currentSection == "" {
			continue // keys outside any section are not addressable, ignored
		}
		sections[currentSection][key] = value
	}
	return sections
}

func parseProperty(kv map[string]string) PropertyConfig {
	p := PropertyConfig{
		BatchSize:   DefaultBatchSize,
		ProcessMode: DefaultProcessMode,
		Interval:    DefaultInterval,
		UniqueID:    DefaultUniqueID,
		NetworkMode: DefaultNetworkMode,
		ClusterMode: DefaultClusterMode,
		GPUID:       DefaultGPUID,
	}
	p.ONNXFile = kv["onnx-file"]
	p.ModelEngineFile = kv["model-engine-file"]
	p.LabelFilePath = kv["labelfile-path"]
	p.BatchSize = parseIntOr(kv["batch-size"], DefaultBatchSize)
	p.ProcessMode = ProcessMode(parseIntOr(kv["process-mode"], int(DefaultProcessMode)))
	p.NumDetectedClasses = parseIntOr(kv["num-detected-classes"], 0)
	p.Interval = parseIntOr(kv["interval"], DefaultInterval)
	p.UniqueID = parseIntOr(kv["unique-id"], DefaultUniqueID)
	p.NetworkMode = NetworkMode(parseIntOr(kv["network-mode"], int(DefaultNetworkMode)))
	p.ClusterMode = parseIntOr(kv["cluster-mode"], DefaultClusterMode)
	p.MaintainAspectRatio = parseIntOr(kv["maintain-aspect-ratio"], 0) != 0
	p.SymmetricPadding = parseIntOr(kv["symmetric-padding"], 0) != 0
	p.GPUID = parseIntOr(kv["gpu-id"], DefaultGPUID)
	return p
}

func parseClassAttrs(kv map[string]string, fallback ClassAttrs) ClassAttrs {
	defaults := fallback
	if defaults == (ClassAttrs{}) {
		defaults = ClassAttrs{
			PreClusterThreshold: DefaultPreClusterThreshold,
			NMSIoUThreshold:     DefaultNMSIoUThreshold,
			TopK:                DefaultTopK,
		}
	}
	return ClassAttrs{
		PreClusterThreshold: parseFloatOr(kv["pre-cluster-threshold"], defaults.PreClusterThreshold),
		NMSIoUThreshold:     parseFloatOr(kv["nms-iou-threshold"], defaults.NMSIoUThreshold),
		TopK:                parseIntOr(kv["topk"], defaults.TopK),
	}
}

// parseIntOr parses s as an int, returning fallback if s is empty or
// unparsable.
func parseIntOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloatOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
