package panchang

import (
	"fmt"
	"strings"
	"time"

	"hinducal/internal/astro"
	"hinducal/internal/model"
)

// arunodaya is the pre-dawn window (four ghatikas) the Vaishnava rule
// inspects for Dashami.
const arunodaya = 96 * time.Minute

type ekadashiKey struct {
	paksha astro.Paksha
	month  time.Month
}

// ekadashiNames maps (paksha, Gregorian month) to the traditional name.
// The Gregorian month stands in for the lunar month; the two drift by at
// most a few weeks.
var ekadashiNames = map[ekadashiKey]string{
	{astro.Shukla, time.January}: "Putrada", {astro.Krishna, time.January}: "Saphala",
	{astro.Shukla, time.February}: "Shattila", {astro.Krishna, time.February}: "Apara",
	{astro.Shukla, time.March}: "Jaya", {astro.Krishna, time.March}: "Vijaya",
	{astro.Shukla, time.April}: "Amalaki", {astro.Krishna, time.April}: "Papamochani",
	{astro.Shukla, time.May}: "Kamada", {astro.Krishna, time.May}: "Varuthini",
	{astro.Shukla, time.June}: "Mohini", {astro.Krishna, time.June}: "Apara/Āchala",
	{astro.Shukla, time.July}: "Nirjala", {astro.Krishna, time.July}: "Yogini",
	{astro.Shukla, time.August}: "Padma/Devshayani", {astro.Krishna, time.August}: "Kamika",
	{astro.Shukla, time.September}: "Pavitra", {astro.Krishna, time.September}: "Aja",
	{astro.Shukla, time.October}: "Parivartini/Padma", {astro.Krishna, time.October}: "Indira",
	{astro.Shukla, time.November}: "Papankusha", {astro.Krishna, time.November}: "Rama",
	{astro.Shukla, time.December}: "Prabodhini/Devutthana", {astro.Krishna, time.December}: "Utpanna",
}

func isEkadashi(tithi int) bool {
	return tithi == 11 || tithi == 26
}

func isDashami(tithi int) bool {
	return tithi == 10 || tithi == 25
}

// Ekadashi returns the Ekadashi observances of year.
//
// Smartha: the civil day whose sunrise falls in Shukla or Krishna Ekadashi.
// Vaishnava: the same day unless Dashami still prevails at arunodaya, in
// which case the fast moves to the following day.
func (o *Observer) Ekadashi(year int, tradition Tradition) []model.Event {
	var out []model.Event
	for _, d := range o.YearDays(year) {
		sr, err := o.Sunrise(d)
		if err != nil {
			continue
		}
		t := astro.TithiAt(sr)
		if !isEkadashi(t) {
			continue
		}
		paksha := astro.PakshaOf(t)

		if tradition != Vaishnava {
			out = append(out, o.allDay(model.KindEkadashi, d,
				fmt.Sprintf("Ekadashi (%s)", paksha),
				fmt.Sprintf("Smārta: tithi %d at sunrise (%s).", t, o.Zone)))
			continue
		}

		if isDashami(astro.TithiAt(sr.Add(-arunodaya))) {
			out = append(out, o.allDay(model.KindEkadashi, d.AddDate(0, 0, 1),
				fmt.Sprintf("Ekadashi (%s)", paksha),
				fmt.Sprintf("Vaishnava shift: Dashami at arunodaya, observed the next day (%s).", o.Zone)))
			continue
		}
		out = append(out, o.allDay(model.KindEkadashi, d,
			fmt.Sprintf("Ekadashi (%s)", paksha),
			fmt.Sprintf("Vaishnava: tithi %d at sunrise (%s).", t, o.Zone)))
	}

	labelEkadashi(out)
	return Dedup(out)
}

// labelEkadashi rewrites summaries to "<name> Ekadashi (<paksha>)".
func labelEkadashi(events []model.Event) {
	for i := range events {
		e := &events[i]
		paksha := astro.Krishna
		if strings.Contains(e.Summary, string(astro.Shukla)) {
			paksha = astro.Shukla
		}
		if name, ok := ekadashiNames[ekadashiKey{paksha, e.Date.Month()}]; ok {
			e.Summary = fmt.Sprintf("%s Ekadashi (%s)", name, paksha)
		}
	}
}

func (o *Observer) allDay(kind model.Kind, day time.Time, summary, desc string) model.Event {
	return model.Event{
		Kind:        kind,
		Summary:     summary,
		Description: desc,
		AllDay:      true,
		Date:        o.Midnight(day),
	}
}
