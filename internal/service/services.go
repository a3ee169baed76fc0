package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/repository"
)

// Service bundles the services sharing one set of per-request locks.
type Service struct {
	requests   IRequestService
	versioning IVersioningService
	httpProxy  IHTTPProxyService
}

func NewService(repo repository.IRepository, httpProxy IHTTPProxyService, metrics *Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	locks := NewRequestLocks()
	return &Service{
		requests:   NewRequestService(repo.Request(), locks, logger),
		versioning: NewVersioningService(repo.Request(), repo.Checkpoint(), locks, metrics, logger),
		httpProxy:  httpProxy,
	}
}

func (s *Service) Requests() IRequestService {
	return s.requests
}

func (s *Service) Versioning() IVersioningService {
	return s.versioning
}

func (s *Service) HTTPProxy() IHTTPProxyService {
	return s.httpProxy
}
