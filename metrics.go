package pyemma

import (
	"github.com/goldstar111/PyEMMA/codec"
	"github.com/goldstar111/PyEMMA/schema"
	"github.com/prometheus/client_golang/prometheus"
)

var saveCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pyemma",
	Subsystem: "container",
	Name:      "saves",
}, []string{"class"})

var loadCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pyemma",
	Subsystem: "container",
	Name:      "loads",
}, []string{"class"})

// RegisterMetrics registers every collector of this module, including
// the per-database collector of an open container.
func RegisterMetrics(reg prometheus.Registerer, containers ...*Container) error {
	cs := []prometheus.Collector{saveCount, loadCount}
	cs = append(cs, schema.MigrationCollectors()...)
	cs = append(cs, codec.Collectors()...)
	for _, c := range containers {
		cs = append(cs, NewDBCollector(c))
	}
	for _, col := range cs {
		if err := reg.Register(col); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
