package services

import (
	"context"
	"fmt"

	"btclotto/domain/entities"
	"btclotto/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// adminService manages the admin capability
type adminService struct {
	adminRepo interfaces.AdminRepository
	deployer  entities.Principal
}

// NewAdminService creates a new admin service. Only the deployer can be granted admin.
func NewAdminService(adminRepo interfaces.AdminRepository, deployer entities.Principal) interfaces.AdminService {
	return &adminService{
		adminRepo: adminRepo,
		deployer:  deployer,
	}
}

// InitializeAuth grants the admin capability to the deployer. Any other caller is rejected.
func (s *adminService) InitializeAuth(ctx context.Context, caller entities.Principal) error {
	if s.deployer == "" || caller != s.deployer {
		log.WithFields(log.Fields{
			"caller": caller,
		}).Warn("Rejected admin initialization")
		return entities.ErrUnauthorized
	}

	if err := s.adminRepo.Grant(ctx, caller); err != nil {
		return fmt.Errorf("failed to grant admin: %w", err)
	}

	log.WithFields(log.Fields{
		"caller": caller,
	}).Info("Admin capability granted")
	return nil
}

// IsAdmin reports whether the caller holds the admin capability
func (s *adminService) IsAdmin(ctx context.Context, caller entities.Principal) (bool, error) {
	isAdmin, err := s.adminRepo.IsAdmin(ctx, caller)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return isAdmin, nil
}
