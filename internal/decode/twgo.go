package decode

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"fisbd/internal/errsink"
	"fisbd/internal/geo"
	"fisbd/internal/product"
	"fisbd/internal/registry"
)

// TWGO product classes carry two independently broadcast frame types: a
// text record and a graphics record, both tagged with the same
// (report-number, report-year) key (spec §3 TWGO Pair). By the time L0's
// DLAC unpacking has run, both halves arrive at L2 as delimited key=value
// text lines rather than binary; this decoder's fields below are this
// module's own wire convention for that text, not a claim about the
// published standard's exact byte layout (the spec itself only specifies
// the logical fields each half must carry).
//
// Text half:     RPT=<num> YR=<year> STATUS=<0|1> BEGIN=<DDHHMM> END=<DDHHMM> TEXT=<free text>
// Graphics half: RPT=<num> YR=<year> TEXTREF=<num> GEOM=<elements separated by ';'>
//   element   := CIRCLE(lat,lon,radiusNM) | POLY(lat,lon|lat,lon|...) | LINE(lat,lon|...) | POINT(lat,lon)

var (
	fieldRe  = regexp.MustCompile(`(\w+)=("[^"]*"|\S+)`)
	circleRe = regexp.MustCompile(`CIRCLE\(([^)]+)\)`)
	polyRe   = regexp.MustCompile(`POLY\(([^)]+)\)`)
	lineRe   = regexp.MustCompile(`LINE\(([^)]+)\)`)
	pointRe  = regexp.MustCompile(`POINT\(([^)]+)\)`)
)

// TWGODecoder handles one TWGO product class's text or graphics frames,
// one decoder instance per product id (registered once for the text id and
// once for the graphics id; see register.go).
type TWGODecoder struct {
	ProductID int
	Type      product.Type
	Graphics  bool
}

func (d *TWGODecoder) Name() string      { return "twgo:" + string(d.Type) }
func (d *TWGODecoder) ProductIDs() []int { return []int{d.ProductID} }

func (d *TWGODecoder) Decode(f registry.Frame) ([]*product.Product, error) {
	fields := parseFields(string(f.Payload))
	rpt, _ := strconv.Atoi(fields["RPT"])
	year, _ := strconv.Atoi(fields["YR"])
	if rpt == 0 {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindDecode, "TWGO record missing RPT field", map[string]any{"product_id": d.ProductID})
		}
		return nil, nil
	}

	base := &product.Product{
		Type:         d.Type,
		UniqueName:   strconv.Itoa(rpt) + "-" + strconv.Itoa(year),
		Station:      f.Station,
		RcvdTime:     f.RcvdTime,
		ReportNumber: rpt,
		ReportYear:   year,
		ProductID:    d.ProductID,
	}

	if !d.Graphics {
		return d.decodeText(f, fields, base)
	}
	return d.decodeGraphics(f, fields, base)
}

func (d *TWGODecoder) decodeText(f registry.Frame, fields map[string]string, base *product.Product) ([]*product.Product, error) {
	if fields["STATUS"] == "0" {
		base.Cancelled = true
		return []*product.Product{base}, nil
	}

	begin, ok := parseDDHHMM(fields["BEGIN"], f.RcvdTime, product.HorizonTWGOBegin)
	if !ok {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindTimeReconstruct, "TWGO begin time outside horizon", map[string]any{"rpt": base.ReportNumber})
		}
		return nil, nil
	}
	end, ok := parseDDHHMM(fields["END"], begin, product.Horizon{Past: 0, Future: 7 * 24 * time.Hour})
	if !ok {
		end = begin.Add(6 * time.Hour)
	}

	base.Contents = fields["TEXT"]
	base.StartOfActivity = begin
	base.EndOfValidity = end
	base.ValidPeriodBegin = begin
	base.ValidPeriodEnd = end
	product.ComputeExpiration(base, f.Expiration)
	return []*product.Product{base}, nil
}

func (d *TWGODecoder) decodeGraphics(f registry.Frame, fields map[string]string, base *product.Product) ([]*product.Product, error) {
	textRef, _ := strconv.Atoi(fields["TEXTREF"])
	base.TextRef = textRef
	base.IsGraphicsHalf = true

	elements, err := parseGeometry(fields["GEOM"])
	if err != nil {
		if f.Sink != nil {
			f.Sink.Append(errsink.KindDecode, "TWGO graphics geometry parse error", map[string]any{"rpt": base.ReportNumber, "error": err.Error()})
		}
		return nil, nil
	}
	base.Geometry = elements
	product.ComputeExpiration(base, f.Expiration)
	return []*product.Product{base}, nil
}

func parseFields(text string) map[string]string {
	out := map[string]string{}
	for _, m := range fieldRe.FindAllStringSubmatch(text, -1) {
		out[m[1]] = strings.Trim(m[2], `"`)
	}
	return out
}

func parseDDHHMM(v string, anchor time.Time, horizon product.Horizon) (time.Time, bool) {
	if len(v) < 6 {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(v[0:2])
	hour, _ := strconv.Atoi(v[2:4])
	minute, _ := strconv.Atoi(v[4:6])
	return product.Reconstruct(product.Partial{
		Day: day, Hour: hour, Minute: minute,
		Present: map[product.Field]bool{product.FieldDay: true, product.FieldHour: true, product.FieldMinute: true},
	}, product.Anchor{At: anchor, Horizon: horizon})
}

func parseGeometry(spec string) ([]geo.Element, error) {
	var out []geo.Element
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch {
		case circleRe.MatchString(part):
			m := circleRe.FindStringSubmatch(part)
			nums := strings.Split(m[1], ",")
			if len(nums) != 3 {
				return nil, errBadGeometry(part)
			}
			lat, _ := strconv.ParseFloat(nums[0], 64)
			lon, _ := strconv.ParseFloat(nums[1], 64)
			r, _ := strconv.ParseFloat(nums[2], 64)
			out = append(out, geo.Circle(point(lon, lat), r))
		case polyRe.MatchString(part):
			m := polyRe.FindStringSubmatch(part)
			ring, err := parseRing(m[1])
			if err != nil {
				return nil, err
			}
			out = append(out, geo.Poly(ring))
		case lineRe.MatchString(part):
			m := lineRe.FindStringSubmatch(part)
			ring, err := parseRing(m[1])
			if err != nil {
				return nil, err
			}
			out = append(out, geo.Line(ring))
		case pointRe.MatchString(part):
			m := pointRe.FindStringSubmatch(part)
			nums := strings.Split(m[1], ",")
			if len(nums) != 2 {
				return nil, errBadGeometry(part)
			}
			lat, _ := strconv.ParseFloat(nums[0], 64)
			lon, _ := strconv.ParseFloat(nums[1], 64)
			out = append(out, geo.Pt(point(lon, lat)))
		default:
			return nil, errBadGeometry(part)
		}
	}
	return out, nil
}
