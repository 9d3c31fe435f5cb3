package charts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
)

type (
	ChartType string
)

const (
	BarChart     ChartType = "bar"
	LineChart    ChartType = "line"
	HeatmapChart ChartType = "heatmap"
	PanelChart   ChartType = "panels"
)

// Artifact is one rendered PNG, kept in memory until it is attached.
type Artifact struct {
	Name  string
	Title string
	Type  ChartType
	Data  []byte
}

func (a Artifact) File() *discord.File {
	return discord.NewFile(a.Name, "", bytes.NewReader(a.Data))
}

func fileName(base, label string) string {
	return fmt.Sprintf("%s_%s.png", base, strings.ToLower(label))
}

func titled(title, label string) string {
	return fmt.Sprintf("%s (%s)", title, label)
}
