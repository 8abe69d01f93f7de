// Package views renders the client UI as templ components. The components
// live in views.templ; views_templ.go is produced by templ generate.
package views

import (
	"strconv"

	"rpsboard/internal/viewmodel"
)

// Fragment element ids. The stream handler names its events after them.
const (
	RosterID  = "roster"
	RoundID   = "round"
	SummaryID = "summary"
	NoticesID = "notices"
)

// indicatorState names the roster dot's state for styling.
func indicatorState(row viewmodel.RosterRow) string {
	if !row.Acted || row.Hint == "" {
		return "idle"
	}
	return row.Hint
}

// chartSrc versions the chart URL so a new scoreboard is not served from
// the browser cache.
func chartSrc(seq int) string {
	return "/summary.png?v=" + strconv.Itoa(seq)
}

const pageCSS = `
body{font-family:sans-serif;margin:2rem}
.roster{list-style:none;padding:0}
.roster li{display:flex;gap:.5rem;align-items:center}
.indicator{width:.7rem;height:.7rem;border-radius:50%;border:1px solid #999}
.indicator[data-state=turn]{background:#3a3}
.indicator[data-state=ready]{background:#999}
.score{margin-left:auto;font-weight:bold}
.summary{border:2px solid #e0a526;padding:1rem}
.summary tr[data-top]{font-weight:bold}
.notices{font-size:.9rem;color:#555}
`

const streamJS = `
(function(){
  var es = new EventSource("/stream");
  ["roster","round","summary","notices"].forEach(function(id){
    es.addEventListener(id, function(e){
      var el = document.getElementById(id);
      if (el) { el.innerHTML = e.data; }
    });
  });
})();
`
