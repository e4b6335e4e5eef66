package handler

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/magoolation/intmud/internal/object"
	"github.com/magoolation/intmud/internal/value"
)

// cumMonthDays[m-1] is the non-leap-year day count before month m (spec
// §4.8 DataHora "the zeller-like sequence {0,31,59,90,...,334}").
var cumMonthDays = [12]int64{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

var monthLen = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func daysInMonth(y, m int) int {
	if m == 2 && isLeapYear(y) {
		return 29
	}
	return monthLen[m-1]
}

func clampDay(y, m, d int) int {
	if d < 1 {
		return 1
	}
	if max := daysInMonth(y, m); d > max {
		return max
	}
	return d
}

// dataNum computes the spec's day-number-since-year-1 (spec §4.8 DataHora):
// the cumulative-days-before-month table, a leap-day adjustment for
// March-onward in a leap year, plus the closed-form count of leap days in
// every prior year (y=year-1; y*1461/4 counts a leap day every 4 years,
// corrected by -y/100 +y/400 for the Gregorian century/400-year rule).
func dataNum(year, month, day int) int64 {
	y := int64(year - 1)
	leapAdj := int64(0)
	if month >= 3 && isLeapYear(year) {
		leapAdj = 1
	}
	return cumMonthDays[month-1] + leapAdj + y*1461/4 - y/100 + y/400 + int64(day)
}

// numData inverts dataNum (spec §8 universal property "d.dataNum then
// inverse numData recovers (year, month, day)") by walking year then month
// forward from a first approximation, since dataNum is monotonic increasing
// in (year, month, day).
func numData(n int64) (year, month, day int) {
	year = int(n*400/146097) + 1
	if year < 1 {
		year = 1
	}
	for dataNum(year+1, 1, 1) <= n {
		year++
	}
	for year > 1 && dataNum(year, 1, 1) > n {
		year--
	}
	month = 1
	for month < 12 && dataNum(year, month+1, 1) <= n {
		month++
	}
	day = int(n - dataNum(year, month, 1) + 1)
	return year, month, day
}

// DataHora is the calendar date/time handler (spec §4.8): fields clamp to
// valid ranges on every set rather than overflowing into the next unit, and
// the day-number arithmetic is the hand-rolled routine spec §9 mandates —
// github.com/ncruces/go-strftime only formats the human-readable string
// form (parsing is the hand-rolled parseYYYYMMDDHHMMSS), and it never
// participates in the date-number math itself.
type DataHora struct {
	base
	mu                   sync.Mutex
	year, month, day     int
	hour, minute, second int
}

func newDataHora(owner *object.Object, field string) *DataHora {
	now := time.Now()
	return &DataHora{
		base: base{owner, field},
		year: now.Year(), month: int(now.Month()), day: now.Day(),
		hour: now.Hour(), minute: now.Minute(), second: now.Second(),
	}
}

func (o *DataHora) ValueDisplay() string { return "#datahora" }
func (o *DataHora) ValueEqual(other value.Handle) bool {
	p, ok := other.(*DataHora)
	return ok && p == o
}

func (o *DataHora) incrementDay() {
	o.day++
	if o.day > daysInMonth(o.year, o.month) {
		o.day = 1
		o.month++
		if o.month > 12 {
			o.month = 1
			if o.year < 9999 {
				o.year++
			}
		}
	}
}

func (o *DataHora) decrementDay() {
	o.day--
	if o.day < 1 {
		o.month--
		if o.month < 1 {
			o.month = 12
			if o.year > 1 {
				o.year--
			}
		}
		o.day = daysInMonth(o.year, o.month)
	}
}

// weekday returns the day of the week, 0=Sunday. dataNum numbers
// 0001-01-01 (a Monday) as day 1, so (days elapsed since that date + 1)
// mod 7 is dataNum mod 7.
func (o *DataHora) weekday() int64 {
	return dataNum(o.year, o.month, o.day) % 7
}

func (o *DataHora) formatYYYYMMDDHHMMSS() string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d", o.year, o.month, o.day, o.hour, o.minute, o.second)
}

// parseYYYYMMDDHHMMSS accepts the full 14-digit form or any prefix of it
// that holds at least the 8-digit YYYYMMDD part (spec §6 "parse/format
// YYYYMMDDHHMMSS"); shorter input is rejected, and missing trailing
// fields default to the earliest valid value for their unit.
func (o *DataHora) parseYYYYMMDDHHMMSS(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return false
	}
	field := func(from, to int, def int) (int, bool) {
		if to > len(s) {
			return def, true
		}
		n, err := strconv.Atoi(s[from:to])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	y, ok1 := field(0, 4, 1)
	m, ok2 := field(4, 6, 1)
	d, ok3 := field(6, 8, 1)
	h, ok4 := field(8, 10, 0)
	mi, ok5 := field(10, 12, 0)
	se, ok6 := field(12, 14, 0)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return false
	}
	if y < 1 {
		y = 1
	}
	if y > 9999 {
		y = 9999
	}
	if m < 1 {
		m = 1
	}
	if m > 12 {
		m = 12
	}
	o.year, o.month = y, m
	o.day = clampDay(o.year, o.month, d)
	o.hour, o.minute, o.second = clampRange(h, 0, 23), clampRange(mi, 0, 59), clampRange(se, 0, 59)
	return true
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (o *DataHora) Call(member string, args []value.Value, countdown bool) (value.Value, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch strings.ToLower(member) {
	case "agora", "now":
		now := time.Now()
		o.year, o.month, o.day = now.Year(), int(now.Month()), now.Day()
		o.hour, o.minute, o.second = now.Hour(), now.Minute(), now.Second()
		return value.Int(dataNum(o.year, o.month, o.day)), true

	case "ano", "year":
		if len(args) == 1 {
			o.year = clampRange(int(args[0].ToInt()), 1, 9999)
			o.day = clampDay(o.year, o.month, o.day)
		}
		return value.Int(int64(o.year)), true
	case "mes", "month":
		if len(args) == 1 {
			o.month = clampRange(int(args[0].ToInt()), 1, 12)
			o.day = clampDay(o.year, o.month, o.day)
		}
		return value.Int(int64(o.month)), true
	case "dia", "day":
		if len(args) == 1 {
			o.day = clampDay(o.year, o.month, int(args[0].ToInt()))
		}
		return value.Int(int64(o.day)), true
	case "hora", "hour":
		if len(args) == 1 {
			o.hour = clampRange(int(args[0].ToInt()), 0, 23)
		}
		return value.Int(int64(o.hour)), true
	case "minuto", "minute":
		if len(args) == 1 {
			o.minute = clampRange(int(args[0].ToInt()), 0, 59)
		}
		return value.Int(int64(o.minute)), true
	case "segundo", "second":
		if len(args) == 1 {
			o.second = clampRange(int(args[0].ToInt()), 0, 59)
		}
		return value.Int(int64(o.second)), true

	case "diasemana", "weekday":
		return value.Int(o.weekday()), true

	case "datanum":
		return value.Int(dataNum(o.year, o.month, o.day)), true
	case "numdata":
		if len(args) != 1 {
			return value.Null(), false
		}
		o.year, o.month, o.day = numData(args[0].ToInt())
		return value.Int(dataNum(o.year, o.month, o.day)), true

	case "proximodia", "incrementar", "nextday":
		o.incrementDay()
		return value.Int(dataNum(o.year, o.month, o.day)), true
	case "diaanterior", "decrementar", "prevday":
		o.decrementDay()
		return value.Int(dataNum(o.year, o.month, o.day)), true

	case "formatar", "format":
		layout := "%Y-%m-%d %H:%M:%S"
		if len(args) == 1 {
			layout = args[0].ToString()
		}
		t := time.Date(o.year, time.Month(o.month), o.day, o.hour, o.minute, o.second, 0, time.UTC)
		out, err := strftime.Format(layout, t)
		if err != nil {
			return value.Str(o.formatYYYYMMDDHHMMSS()), true
		}
		return value.Str(out), true
	case "paratexto", "totext":
		return value.Str(o.formatYYYYMMDDHHMMSS()), true
	case "parse", "ler":
		if len(args) != 1 {
			return value.Null(), false
		}
		ok := o.parseYYYYMMDDHHMMSS(args[0].ToString())
		return value.Bool(ok), ok

	default:
		return value.Null(), false
	}
}
