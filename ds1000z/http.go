package ds1000z

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/x-vmaier/rigol1000z/generichttp"
	"github.com/x-vmaier/rigol1000z/oscilloscope"
)

// screenshotContentTypes maps the accepted image formats to their MIME
// types for the screenshot route.
var screenshotContentTypes = map[string]string{
	"jpeg":  "image/jpeg",
	"png":   "image/png",
	"bmp8":  "image/bmp",
	"bmp24": "image/bmp",
	"tiff":  "image/tiff",
}

// HTTPWrapper provides HTTP bindings on top of the underlying Go
// interface.  Bind must be called on it.
type HTTPWrapper struct {
	// Scope is the underlying instrument that is wrapped
	*Scope

	// RouteTable maps method/path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table
// pre-configured.
func NewHTTPWrapper(s *Scope) HTTPWrapper {
	w := HTTPWrapper{Scope: s}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/id"}:           generichttp.GetString(s.ID),
		{Method: http.MethodGet, Path: "/capabilities"}: w.Capabilities,

		{Method: http.MethodPost, Path: "/run"}:           generichttp.Call(s.Run),
		{Method: http.MethodPost, Path: "/stop"}:          generichttp.Call(s.Stop),
		{Method: http.MethodPost, Path: "/single"}:        generichttp.Call(s.Single),
		{Method: http.MethodPost, Path: "/force-trigger"}: generichttp.Call(s.ForceTrigger),
		{Method: http.MethodPost, Path: "/clear"}:         generichttp.Call(s.Clear),
		{Method: http.MethodPost, Path: "/autoscale"}:     generichttp.Call(s.Autoscale),

		{Method: http.MethodGet, Path: "/channel/{ch}/scale"}:        w.channelFloat(Channel.Scale),
		{Method: http.MethodPost, Path: "/channel/{ch}/scale"}:       w.channelSetFloat(Channel.SetScale),
		{Method: http.MethodGet, Path: "/channel/{ch}/offset"}:       w.channelFloat(Channel.Offset),
		{Method: http.MethodPost, Path: "/channel/{ch}/offset"}:      w.channelSetFloat(Channel.SetOffset),
		{Method: http.MethodGet, Path: "/channel/{ch}/coupling"}:     w.channelString(Channel.Coupling),
		{Method: http.MethodPost, Path: "/channel/{ch}/coupling"}:    w.channelSetString(Channel.SetCoupling),
		{Method: http.MethodGet, Path: "/channel/{ch}/enabled"}:      w.channelBool(Channel.Enabled),
		{Method: http.MethodPost, Path: "/channel/{ch}/enabled"}:     w.channelSetBool(Channel.SetEnabled),
		{Method: http.MethodGet, Path: "/channel/{ch}/probe-ratio"}:  w.channelFloat(Channel.ProbeRatio),
		{Method: http.MethodPost, Path: "/channel/{ch}/probe-ratio"}: w.channelSetFloat(Channel.SetProbeRatio),

		{Method: http.MethodGet, Path: "/timebase/scale"}:   generichttp.GetFloat(s.Timebase().Scale),
		{Method: http.MethodPost, Path: "/timebase/scale"}:  generichttp.SetFloat(s.Timebase().SetScale),
		{Method: http.MethodGet, Path: "/timebase/offset"}:  generichttp.GetFloat(s.Timebase().Offset),
		{Method: http.MethodPost, Path: "/timebase/offset"}: generichttp.SetFloat(s.Timebase().SetOffset),
		{Method: http.MethodGet, Path: "/timebase/mode"}:    generichttp.GetString(s.Timebase().Mode),
		{Method: http.MethodPost, Path: "/timebase/mode"}:   generichttp.SetString(s.Timebase().SetMode),

		{Method: http.MethodGet, Path: "/trigger/status"}:       generichttp.GetString(s.Trigger().Status),
		{Method: http.MethodGet, Path: "/trigger/holdoff"}:      generichttp.GetFloat(s.Trigger().Holdoff),
		{Method: http.MethodPost, Path: "/trigger/holdoff"}:     generichttp.SetFloat(s.Trigger().SetHoldoff),
		{Method: http.MethodGet, Path: "/trigger/edge/level"}:   generichttp.GetFloat(s.Trigger().Edge().Level),
		{Method: http.MethodPost, Path: "/trigger/edge/level"}:  generichttp.SetFloat(s.Trigger().Edge().SetLevel),
		{Method: http.MethodGet, Path: "/trigger/edge/source"}:  generichttp.GetString(s.Trigger().Edge().Source),
		{Method: http.MethodPost, Path: "/trigger/edge/source"}: generichttp.SetString(s.Trigger().Edge().SetSource),
		{Method: http.MethodGet, Path: "/trigger/edge/slope"}:   generichttp.GetString(s.Trigger().Edge().Slope),
		{Method: http.MethodPost, Path: "/trigger/edge/slope"}:  generichttp.SetString(s.Trigger().Edge().SetSlope),

		{Method: http.MethodGet, Path: "/acquire/sample-rate"}:   generichttp.GetFloat(s.Acquire().SampleRate),
		{Method: http.MethodGet, Path: "/acquire/type"}:          generichttp.GetString(s.Acquire().Type),
		{Method: http.MethodPost, Path: "/acquire/type"}:         generichttp.SetString(s.Acquire().SetType),
		{Method: http.MethodGet, Path: "/acquire/averages"}:      generichttp.GetInt(s.Acquire().Averages),
		{Method: http.MethodPost, Path: "/acquire/averages"}:     generichttp.SetInt(s.Acquire().SetAverages),
		{Method: http.MethodGet, Path: "/acquire/memory-depth"}:  generichttp.GetInt(s.Acquire().MemoryDepth),
		{Method: http.MethodPost, Path: "/acquire/memory-depth"}: generichttp.SetInt(s.Acquire().SetMemoryDepth),

		{Method: http.MethodGet, Path: "/waveform"}:   w.Waveform,
		{Method: http.MethodGet, Path: "/screenshot"}: w.Screenshot,
	}
	w.RouteTable = rt
	generichttp.InjectRawComm(w, s)
	return w
}

// RT satisfies generichttp.HTTPer.
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

// Bind attaches the wrapper's routes to r.
func (h HTTPWrapper) Bind(r chi.Router) {
	h.RouteTable.Bind(r)
}

func (h HTTPWrapper) channel(w http.ResponseWriter, r *http.Request) (Channel, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "ch"))
	if err != nil {
		http.Error(w, fmt.Sprintf("channel %q is not a number", chi.URLParam(r, "ch")), http.StatusBadRequest)
		return Channel{}, false
	}
	ch, err := h.Scope.Channel(n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return Channel{}, false
	}
	return ch, true
}

func (h HTTPWrapper) channelFloat(get func(Channel) (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.GetFloat(func() (float64, error) { return get(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetFloat(set func(Channel, float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.SetFloat(func(f float64) error { return set(ch, f) })(w, r)
	}
}

func (h HTTPWrapper) channelString(get func(Channel) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.GetString(func() (string, error) { return get(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetString(set func(Channel, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.SetString(func(s string) error { return set(ch, s) })(w, r)
	}
}

func (h HTTPWrapper) channelBool(get func(Channel) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.GetBool(func() (bool, error) { return get(ch) })(w, r)
	}
}

func (h HTTPWrapper) channelSetBool(set func(Channel, bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ch, ok := h.channel(w, r)
		if !ok {
			return
		}
		generichttp.SetBool(func(b bool) error { return set(ch, b) })(w, r)
	}
}

// Capabilities returns the hardware variant's feature set as JSON.
func (h HTTPWrapper) Capabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := h.Scope.Capabilities()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(caps); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Waveform downloads the captured waveform and streams it as two-column
// text, time then volts.  Query parameters: source (CHAN1..CHAN4, MATH),
// mode (NORM or RAW), baseline (zero or device).
func (h HTTPWrapper) Waveform(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := AcquireOptions{
		Source: q.Get("source"),
		Mode:   q.Get("mode"),
	}
	switch q.Get("baseline") {
	case "", "zero":
	case "device":
		opts.Baseline = oscilloscope.BaselineDevice
	default:
		http.Error(w, fmt.Sprintf("baseline %q not in {zero, device}", q.Get("baseline")), http.StatusBadRequest)
		return
	}
	series, err := h.Scope.AcquireData(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	if err := series.EncodeTXT(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Screenshot downloads the display image.  Query parameter: format, one
// of jpeg, png, bmp8, bmp24, tiff; png when absent.
func (h HTTPWrapper) Screenshot(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "png"
	}
	ctype, ok := screenshotContentTypes[format]
	if !ok {
		http.Error(w, fmt.Sprintf("image format %q is not supported", format), http.StatusBadRequest)
		return
	}
	img, err := h.Scope.Screenshot(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Write(img)
}
