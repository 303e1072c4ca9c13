package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fraatlas_documents_ingested_total",
		Help: "Number of claim documents successfully ingested.",
	})
	dssQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraatlas_dss_queries_total",
		Help: "DSS eligibility queries by outcome.",
	}, []string{"status"})
)
