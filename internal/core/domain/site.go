package domain

// Site identifies a check-in target.
type Site string

const (
	SiteTampermonkey Site = "tampermonkey"
	SiteWinMoes      Site = "winmoes"
)

// SiteTitles holds the notification title per site.
var SiteTitles = map[Site]string{
	SiteTampermonkey: "Tampermonkey forum check-in result",
	SiteWinMoes:      "WinMoes check-in report",
}

// Account is one set of credentials for a site.
type Account struct {
	Name     string
	Cookie   string
	Username string
	Password string
}
