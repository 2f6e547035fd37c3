package models

import "strings"

type Platform string

const (
	PlatformIOS         Platform = "ios"
	PlatformAndroid     Platform = "android"
	PlatformSteam       Platform = "steam"
	PlatformWeb         Platform = "web"
	PlatformWindows     Platform = "windows"
	PlatformMacOS       Platform = "macos"
	PlatformPlaystation Platform = "playstation"
	PlatformXbox        Platform = "xbox"
	PlatformNintendo    Platform = "nintendo"
)

var Platforms = []Platform{
	PlatformIOS,
	PlatformAndroid,
	PlatformSteam,
	PlatformWeb,
	PlatformWindows,
	PlatformMacOS,
	PlatformPlaystation,
	PlatformXbox,
	PlatformNintendo,
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformSteam, PlatformWeb, PlatformWindows,
		PlatformMacOS, PlatformPlaystation, PlatformXbox, PlatformNintendo:
		return true
	default:
		return false
	}
}

func (p Platform) String() string {
	return string(p)
}

type platformRule struct {
	keywords []string
	platform Platform
}

// Order matters: "mac" must come after "playstation" etc., "windows" last so
// that console user agents containing "Windows" resolve to the console.
var platformRules = []platformRule{
	{[]string{"iphone", "ipad", "ipod"}, PlatformIOS},
	{[]string{"android"}, PlatformAndroid},
	{[]string{"playstation"}, PlatformPlaystation},
	{[]string{"xbox"}, PlatformXbox},
	{[]string{"nintendo", "switch"}, PlatformNintendo},
	{[]string{"steam"}, PlatformSteam},
	{[]string{"mac"}, PlatformMacOS},
	{[]string{"windows"}, PlatformWindows},
}

// DetectPlatform guesses the requester's platform from the user agent.
// Pure keyword lookup, best effort only.
func DetectPlatform(userAgent string) (Platform, bool) {
	ua := strings.ToLower(userAgent)
	for _, rule := range platformRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(ua, keyword) {
				return rule.platform, true
			}
		}
	}

	return "", false
}
