package cron

import (
	"ThinkSync/internal/job"
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	unreadReconcileJob *job.UnreadReconcileJob
	reconcileSpec      string
}

func NewCronManager(unreadReconcileJob *job.UnreadReconcileJob, reconcileSpec string) *Manager {
	return &Manager{
		engine:             cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		unreadReconcileJob: unreadReconcileJob,
		reconcileSpec:      reconcileSpec,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.reconcileSpec, s.unreadReconcileJob); err != nil {
		return fmt.Errorf("register unread reconcile job %q: %w", s.reconcileSpec, err)
	}
	return nil
}

// InitCron 注册并启动；表达式非法时直接返回错误
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	mgr.Start()
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动", "reconcileSpec", s.reconcileSpec)
	s.engine.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
