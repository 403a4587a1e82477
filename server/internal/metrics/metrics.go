package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/taskboard/taskboard/server/internal/store"
)

const (
	famRequests   = "taskboard_http_requests_total"
	famDuration   = "taskboard_http_request_duration_seconds"
	famStoreOps   = "taskboard_store_operations_total"
	famTasksGauge = "taskboard_tasks"
)

type requestKey struct {
	route, method string
	code          int
}

type routeKey struct {
	route, method string
}

type durationStats struct {
	count uint64
	sum   float64
}

type storeKey struct {
	op, result string
}

// Registry holds all server metrics. It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	requests  map[requestKey]float64
	durations map[routeKey]*durationStats
	storeOps  map[storeKey]float64
	tasks     float64
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		requests:  make(map[requestKey]float64),
		durations: make(map[routeKey]*durationStats),
		storeOps:  make(map[storeKey]float64),
	}
}

// ObserveRequest records one completed HTTP request.
func (r *Registry) ObserveRequest(route, method string, code int, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[requestKey{route, method, code}]++
	ds, ok := r.durations[routeKey{route, method}]
	if !ok {
		ds = &durationStats{}
		r.durations[routeKey{route, method}] = ds
	}
	ds.count++
	ds.sum += d.Seconds()
}

// ObserveStore records one store operation. op is "load" or "save".
func (r *Registry) ObserveStore(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mu.Lock()
	r.storeOps[storeKey{op, result}]++
	r.mu.Unlock()
}

// SetTaskCount sets the task gauge.
func (r *Registry) SetTaskCount(n int) {
	r.mu.Lock()
	r.tasks = float64(n)
	r.mu.Unlock()
}

// Gather returns a point-in-time copy of every family, sorted by name with
// metrics sorted by label values.
func (r *Registry) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	reqs := &dto.MetricFamily{
		Name: proto.String(famRequests),
		Help: proto.String("HTTP requests handled, by route, method and status code."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for k, v := range r.requests {
		reqs.Metric = append(reqs.Metric, &dto.Metric{
			Label:   labels("code", strconv.Itoa(k.code), "method", k.method, "route", k.route),
			Counter: &dto.Counter{Value: proto.Float64(v)},
		})
	}

	dur := &dto.MetricFamily{
		Name: proto.String(famDuration),
		Help: proto.String("HTTP request latency in seconds, by route and method."),
		Type: dto.MetricType_SUMMARY.Enum(),
	}
	for k, ds := range r.durations {
		dur.Metric = append(dur.Metric, &dto.Metric{
			Label: labels("method", k.method, "route", k.route),
			Summary: &dto.Summary{
				SampleCount: proto.Uint64(ds.count),
				SampleSum:   proto.Float64(ds.sum),
			},
		})
	}

	ops := &dto.MetricFamily{
		Name: proto.String(famStoreOps),
		Help: proto.String("Store loads and saves, by result."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for k, v := range r.storeOps {
		ops.Metric = append(ops.Metric, &dto.Metric{
			Label:   labels("op", k.op, "result", k.result),
			Counter: &dto.Counter{Value: proto.Float64(v)},
		})
	}

	gauge := &dto.MetricFamily{
		Name: proto.String(famTasksGauge),
		Help: proto.String("Number of tasks in the last collection loaded or saved."),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{
			Gauge: &dto.Gauge{Value: proto.Float64(r.tasks)},
		}},
	}

	out := make([]*dto.MetricFamily, 0, 4)
	for _, mf := range []*dto.MetricFamily{reqs, dur, ops, gauge} {
		if len(mf.Metric) == 0 {
			continue
		}
		sortMetrics(mf.Metric)
		out = append(out, mf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// ServeHTTP writes every family in the Prometheus text format.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode family", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// InstrumentStore wraps st so every Load and Save is counted.
func (r *Registry) InstrumentStore(st store.Store) store.Store {
	return &instrumentedStore{next: st, reg: r}
}

type instrumentedStore struct {
	next store.Store
	reg  *Registry
}

func (s *instrumentedStore) Load(ctx context.Context) (store.Collection, error) {
	c, err := s.next.Load(ctx)
	s.reg.ObserveStore("load", err)
	if err == nil {
		s.reg.SetTaskCount(len(c))
	}
	return c, err
}

func (s *instrumentedStore) Save(ctx context.Context, c store.Collection) error {
	err := s.next.Save(ctx, c)
	s.reg.ObserveStore("save", err)
	if err == nil {
		s.reg.SetTaskCount(len(c))
	}
	return err
}

// labels builds label pairs from alternating name/value arguments. Names must
// already be in sorted order.
func labels(kv ...string) []*dto.LabelPair {
	out := make([]*dto.LabelPair, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &dto.LabelPair{
			Name:  proto.String(kv[i]),
			Value: proto.String(kv[i+1]),
		})
	}
	return out
}

func sortMetrics(ms []*dto.Metric) {
	key := func(m *dto.Metric) string {
		var s string
		for _, lp := range m.GetLabel() {
			s += lp.GetValue() + "\xff"
		}
		return s
	}
	sort.Slice(ms, func(i, j int) bool { return key(ms[i]) < key(ms[j]) })
}
