package netsim

// Profile identifies one of the named degradation presets.
type Profile string

const (
	ProfilePerfect    Profile = "perfect"
	ProfileMobile3G   Profile = "mobile_3g"
	ProfileMobile4G   Profile = "mobile_4g"
	ProfileMobile5G   Profile = "mobile_5g"
	ProfileWiFiHome   Profile = "wifi_home"
	ProfileWiFiPublic Profile = "wifi_public"
	ProfileSatellite  Profile = "satellite"
	ProfileBroadband  Profile = "broadband"
	ProfilePoor       Profile = "poor"
)

// Presets maps every named profile to its Conditions record: Perfect,
// Mobile3G, Mobile4G, Mobile5G, WiFiHome, WiFiPublic, Satellite,
// Broadband, and Poor (stress). Values are representative, not measured —
// this is a test harness, not a network-characterization tool.
var Presets = map[Profile]Conditions{
	ProfilePerfect: {
		PacketLossPercent: 0, LatencyMS: 1, BandwidthKbps: 0, JitterMS: 0,
	},
	ProfileMobile3G: {
		PacketLossPercent: 5, LatencyMS: 300, BandwidthKbps: 384, JitterMS: 60,
		DuplicateProbability: 1, AllowReordering: true, MinDelayMS: 200, MaxDelayMS: 500, DelayProbabilityPct: 15,
	},
	ProfileMobile4G: {
		PacketLossPercent: 1.5, LatencyMS: 60, BandwidthKbps: 12000, JitterMS: 15,
		DuplicateProbability: 0.5, AllowReordering: true, MinDelayMS: 30, MaxDelayMS: 90, DelayProbabilityPct: 5,
	},
	ProfileMobile5G: {
		PacketLossPercent: 0.3, LatencyMS: 12, BandwidthKbps: 100000, JitterMS: 3,
		DuplicateProbability: 0.1, MinDelayMS: 5, MaxDelayMS: 20, DelayProbabilityPct: 2,
	},
	ProfileWiFiHome: {
		PacketLossPercent: 0.5, LatencyMS: 8, BandwidthKbps: 50000, JitterMS: 4,
		MinDelayMS: 2, MaxDelayMS: 15, DelayProbabilityPct: 2,
	},
	ProfileWiFiPublic: {
		PacketLossPercent: 3, LatencyMS: 40, BandwidthKbps: 8000, JitterMS: 25,
		DuplicateProbability: 1, AllowReordering: true, MinDelayMS: 20, MaxDelayMS: 120, DelayProbabilityPct: 10,
	},
	ProfileSatellite: {
		PacketLossPercent: 1, LatencyMS: 700, BandwidthKbps: 3000, JitterMS: 20,
		MinDelayMS: 600, MaxDelayMS: 800, DelayProbabilityPct: 8,
	},
	ProfileBroadband: {
		PacketLossPercent: 0.1, LatencyMS: 5, BandwidthKbps: 200000, JitterMS: 1,
	},
	ProfilePoor: {
		PacketLossPercent: 15, LatencyMS: 900, BandwidthKbps: 256, JitterMS: 150,
		DuplicateProbability: 5, AllowReordering: true, MinDelayMS: 500, MaxDelayMS: 1500, DelayProbabilityPct: 30,
	},
}

// Lookup returns the preset conditions for name, or Perfect if name is
// unrecognized.
func Lookup(name Profile) Conditions {
	if c, ok := Presets[name]; ok {
		return c
	}
	return Perfect()
}
