package page

import (
	"math/rand/v2"
	"strings"
)

type UserAgentType string

const (
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentSafari  UserAgentType = "safari"
	UserAgentEdge    UserAgentType = "edge"
)

const fallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		fallbackUserAgent,
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	UserAgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
	UserAgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	},
}

// UserAgent picks a user agent for the given browser type.
// Empty or "auto" picks from every browser; unknown values are used verbatim.
func UserAgent(uaType string) string {
	raw := strings.TrimSpace(uaType)
	if raw == "" {
		raw = string(UserAgentAuto)
	}

	switch t := UserAgentType(strings.ToLower(raw)); t {
	case UserAgentAuto:
		return pick(allUserAgents())
	case UserAgentChrome, UserAgentFirefox, UserAgentSafari, UserAgentEdge:
		return pick(userAgents[t])
	default:
		return raw
	}
}

func allUserAgents() []string {
	var all []string
	for _, agents := range userAgents {
		all = append(all, agents...)
	}
	return all
}

func pick(agents []string) string {
	if len(agents) == 0 {
		return fallbackUserAgent
	}
	return agents[rand.IntN(len(agents))]
}
