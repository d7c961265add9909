package settings

import (
	"strings"

	"tipjar-tui/config"
	"tipjar-tui/styles"
)

// Mode is what the settings page is doing.
type Mode string

const (
	ModeList Mode = "list"
	ModeAdd  Mode = "add"
)

// Nav returns the navigation bar for settings view
func Nav(width int, mode Mode, dev bool) string {
	var keys []string
	switch {
	case mode == ModeAdd:
		keys = []string{
			styles.Key("Enter") + " save",
			styles.Key("Esc") + " cancel",
		}
	case dev:
		keys = []string{
			styles.Key("1") + " tip jar",
			styles.Key("l") + " logger",
			styles.Key("Ctrl+c") + " quit",
		}
	default:
		keys = []string{
			styles.Key("↑/↓") + " select",
			styles.Key("Enter") + " activate",
			styles.Key("a") + " add",
			styles.Key("d") + " delete",
			styles.Key("1") + " tip jar",
			styles.Key("l") + " logger",
		}
	}
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Info is the wallet side of the settings page.
type Info struct {
	Dev         bool
	KeystoreDir string
	Contract    string
	Owner       string
}

// Render renders the network settings view
func Render(rpcURLs []config.RPCUrl, selectedIdx int, info Info) string {
	lines := []string{styles.TitleStyle.Render("Settings"), ""}

	wallet := "keystore " + info.KeystoreDir
	if info.Dev {
		wallet = "development chain (in process)"
	}
	lines = append(lines,
		styles.Row("Wallet", wallet),
		styles.Row("Tip jar", info.Contract),
		styles.Row("Owner", info.Owner),
		"",
	)

	if info.Dev {
		lines = append(lines, styles.MutedStyle.Render("RPC endpoints are not used while TIPJAR_DEV is set."))
		return strings.Join(lines, "\n")
	}

	if len(rpcURLs) == 0 {
		lines = append(lines,
			styles.MutedStyle.Render("No RPC endpoints configured."),
			"",
			styles.MutedStyle.Render("Press ")+styles.Key("a")+styles.MutedStyle.Render(" to add one."),
		)
		return strings.Join(lines, "\n")
	}

	lines = append(lines, styles.MutedStyle.Render("RPC endpoints:"), "")
	for i, rpc := range rpcURLs {
		marker := styles.MutedStyle.Render("○ ")
		if rpc.Active {
			marker = styles.HotkeyKeyStyle.Render("● ")
		}
		nameStyle := styles.ValueStyle.UnsetBold()
		urlStyle := styles.MutedStyle
		if i == selectedIdx {
			nameStyle = nameStyle.Background(styles.CPanel).Foreground(styles.CAccent2).Bold(true)
			urlStyle = urlStyle.Background(styles.CPanel)
			marker = styles.TitleStyle.Render("▶ ")
		}
		lines = append(lines, marker+nameStyle.Render(rpc.Name), "  "+urlStyle.Render(rpc.URL), "")
	}

	return strings.Join(lines, "\n")
}
