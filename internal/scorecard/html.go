package scorecard

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tableKind classifies a scorecard table by its header row.
type tableKind int

const (
	tableUnknown tableKind = iota
	tableBatting
	tableBowling
)

// extractHTML walks every table in the document, classifies it as a batting
// or bowling card, works out which side it belongs to from the nearest
// heading, and folds the rows of the context club's players into the builder.
// Fielding credits come from the dismissal column of the opposition innings,
// since those name the club's own fielders.
func (e *Extractor) extractHTML(doc []byte, mctx Context, b *builder, diag *Diagnostics) {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		diag.Reason = "unparsable HTML: " + err.Error()
		return
	}

	tables := root.Find("table")
	if tables.Length() == 0 {
		diag.Reason = "no scorecard tables in document"
		return
	}

	tables.Each(func(i int, table *goquery.Selection) {
		headers := headerCells(table)
		kind := classifyTable(headers)
		if kind == tableUnknown {
			return
		}

		switch classifySide(inningsTeam(table), mctx.Club) {
		case sideUnknown:
			diag.warnf("scorecard table with no side label skipped")
		case sideOurs:
			if kind == tableBatting {
				e.parseBattingTable(table, headers, b, diag)
			}
		case sideOpposition:
			if kind == tableBatting {
				// opposition batting: their dismissals credit our fielders
				e.parseOppositionDismissals(table, headers, b)
			} else {
				// a bowling card under the opposition innings lists our bowlers
				e.parseBowlingTable(table, headers, b, diag)
			}
		}
	})
}

// headerCells returns the lowercased header texts of a table.
func headerCells(table *goquery.Selection) []string {
	var headers []string
	table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.ToLower(strings.TrimSpace(cell.Text())))
	})
	return headers
}

func classifyTable(headers []string) tableKind {
	joined := " " + strings.Join(headers, " ") + " "
	switch {
	case strings.Contains(joined, "batsman") || strings.Contains(joined, "batter"):
		return tableBatting
	case strings.Contains(joined, "bowler") || strings.Contains(joined, " overs ") ||
		strings.Contains(joined, " wkts "):
		return tableBowling
	default:
		return tableUnknown
	}
}

// inningsTeam finds the side label for a table from the nearest preceding
// heading or the table's own caption. Club sites are inconsistent about
// where they put it; a table with no label at all comes back empty and the
// caller skips it rather than guess a side.
func inningsTeam(table *goquery.Selection) string {
	if caption := strings.TrimSpace(table.Find("caption").Text()); caption != "" {
		return stripInningsSuffix(caption)
	}
	heading := table.PrevAllFiltered("h1, h2, h3, h4, h5").First()
	if heading.Length() > 0 {
		return stripInningsSuffix(strings.TrimSpace(heading.Text()))
	}
	return ""
}

func stripInningsSuffix(s string) string {
	lower := strings.ToLower(s)
	if idx := strings.Index(lower, "innings"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

// columnIndex finds the first header matching any of the names, or -1.
func columnIndex(headers []string, names ...string) int {
	for i, h := range headers {
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func (e *Extractor) parseBattingTable(table *goquery.Selection, headers []string, b *builder, diag *Diagnostics) {
	nameCol := columnIndex(headers, "batsman", "batter", "name", "player")
	outCol := columnIndex(headers, "how out", "dismissal", "status", "out")
	runsCol := columnIndex(headers, "r", "runs")
	ballsCol := columnIndex(headers, "b", "balls", "bf")
	foursCol := columnIndex(headers, "4s", "fours")
	sixesCol := columnIndex(headers, "6s", "sixes")

	if nameCol < 0 {
		nameCol = 0
	}
	if outCol < 0 && len(headers) > 1 {
		outCol = 1
	}
	if runsCol < 0 {
		diag.warnf("batting table has no runs column, skipped")
		return
	}

	table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 {
			return
		}
		cells := cellTexts(row)
		if len(cells) <= runsCol || isTotalsRow(cells[nameCol]) {
			return
		}
		rawName := cells[nameCol]
		name := cleanName(rawName)
		if name == "" {
			return
		}

		fig := BattingFigures{Runs: atoiLoose(cells[runsCol])}
		if ballsCol >= 0 && ballsCol < len(cells) {
			fig.BallsFaced = atoiLoose(cells[ballsCol])
		}
		if foursCol >= 0 && foursCol < len(cells) {
			fig.Fours = atoiLoose(cells[foursCol])
		}
		if sixesCol >= 0 && sixesCol < len(cells) {
			fig.Sixes = atoiLoose(cells[sixesCol])
		}
		if outCol >= 0 && outCol < len(cells) {
			fig.Dismissed = parseDismissal(cells[outCol]).Out
		}

		b.addBatting(name, fig)
		if strings.Contains(rawName, "†") || strings.Contains(strings.ToLower(rawName), "(wk)") {
			b.markKeeper(name)
		}
	})
}

func (e *Extractor) parseBowlingTable(table *goquery.Selection, headers []string, b *builder, diag *Diagnostics) {
	nameCol := columnIndex(headers, "bowler", "name", "player")
	oversCol := columnIndex(headers, "o", "overs")
	maidensCol := columnIndex(headers, "m", "maidens", "mdns")
	runsCol := columnIndex(headers, "r", "runs")
	wktsCol := columnIndex(headers, "w", "wkts", "wickets")

	if nameCol < 0 {
		nameCol = 0
	}
	if oversCol < 0 || wktsCol < 0 {
		diag.warnf("bowling table missing overs or wickets column, skipped")
		return
	}

	table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 {
			return
		}
		cells := cellTexts(row)
		if len(cells) <= wktsCol || isTotalsRow(cells[nameCol]) {
			return
		}
		name := cleanName(cells[nameCol])
		if name == "" {
			return
		}

		overs, err := strconv.ParseFloat(sanitizeNumber(cells[oversCol]), 64)
		if err != nil {
			diag.warnf("bad overs value %q for %s", cells[oversCol], name)
			return
		}
		fig := BowlingFigures{Overs: overs, Wickets: atoiLoose(cells[wktsCol])}
		if maidensCol >= 0 && maidensCol < len(cells) {
			fig.Maidens = atoiLoose(cells[maidensCol])
		}
		if runsCol >= 0 && runsCol < len(cells) {
			fig.RunsConceded = atoiLoose(cells[runsCol])
		}
		b.addBowling(name, fig)
	})
}

// parseOppositionDismissals scans the opposition batting card and credits
// catches, stumpings and run outs to the named fielders of the context club.
func (e *Extractor) parseOppositionDismissals(table *goquery.Selection, headers []string, b *builder) {
	outCol := columnIndex(headers, "how out", "dismissal", "status", "out")
	if outCol < 0 {
		outCol = 1
	}
	table.Find("tr").Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx == 0 {
			return
		}
		cells := cellTexts(row)
		if len(cells) <= outCol {
			return
		}
		creditFielders(parseDismissal(cells[outCol]), b)
	})
}

// creditFielders applies the fielding credits of one dismissal, skipping
// substitutes and blank names.
func creditFielders(d dismissal, b *builder) {
	credit := func(name string, add func(string)) {
		if name == "" || strings.EqualFold(name, "sub") || strings.HasPrefix(strings.ToLower(name), "sub ") {
			return
		}
		add(name)
	}
	credit(d.Catcher, b.addCatch)
	credit(d.Stumper, b.addStumping)
	credit(d.RunOut, b.addRunOut)
}

func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	return cells
}

func isTotalsRow(first string) bool {
	lower := strings.ToLower(first)
	return strings.Contains(lower, "extras") || strings.Contains(lower, "total") ||
		strings.Contains(lower, "fall of wickets") || strings.Contains(lower, "did not bat")
}

// sanitizeNumber keeps digits and a decimal point, dropping footnote marks
// and stray characters the match centre sprinkles into cells.
func sanitizeNumber(s string) string {
	var sb strings.Builder
	for _, c := range s {
		if (c >= '0' && c <= '9') || c == '.' {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

func atoiLoose(s string) int {
	n, _ := strconv.Atoi(sanitizeNumber(s))
	return n
}
