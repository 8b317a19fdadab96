package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
)

//go:embed model.conf
var modelText string

const (
	ObjectWallet   = "wallet"
	ObjectStorage  = "storage"
	ObjectPlan     = "plan"
	ObjectFile     = "file"
	ObjectTreasury = "treasury"
	ObjectFinance  = "finance"
)

const (
	ActionWalletView      = "wallet.view"
	ActionWalletFund      = "wallet.fund"
	ActionStoragePurchase = "storage.purchase"
	ActionStorageView     = "storage.view"
	ActionPlanManage      = "plan.manage"
	ActionFileUpload      = "file.upload"
	ActionFileDelete      = "file.delete"
	ActionTreasuryPayout  = "treasury.payout"
	ActionFinanceView     = "finance.view"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, claims *identitydomain.Claims, object, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, claims *identitydomain.Claims, object, action string) error {
	if claims == nil || claims.AccountID == 0 || !claims.Role.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(claims.AccountID)
	roleName := fmt.Sprintf("role:%s", claims.Role)
	domain := fmt.Sprintf("school:%s", claims.SchoolID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps the enforcer's role binding for the subject in
// sync with the role carried by the session.
func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func subjectFor(accountID snowflake.ID) string {
	return "account:" + accountID.String()
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:operator", "*", ObjectWallet, ActionWalletView},
		{"role:operator", "*", ObjectWallet, ActionWalletFund},
		{"role:operator", "*", ObjectStorage, ActionStoragePurchase},
		{"role:operator", "*", ObjectStorage, ActionStorageView},
		{"role:operator", "*", ObjectPlan, ActionPlanManage},
		{"role:operator", "*", ObjectFile, ActionFileUpload},
		{"role:operator", "*", ObjectFile, ActionFileDelete},
		{"role:operator", "*", ObjectTreasury, ActionTreasuryPayout},
		{"role:operator", "*", ObjectFinance, ActionFinanceView},

		{"role:staff", "*", ObjectWallet, ActionWalletView},
		{"role:staff", "*", ObjectWallet, ActionWalletFund},
		{"role:staff", "*", ObjectStorage, ActionStoragePurchase},
		{"role:staff", "*", ObjectStorage, ActionStorageView},
		{"role:staff", "*", ObjectFile, ActionFileUpload},
		{"role:staff", "*", ObjectFile, ActionFileDelete},
		{"role:staff", "*", ObjectFinance, ActionFinanceView},

		{"role:member", "*", ObjectWallet, ActionWalletView},
		{"role:member", "*", ObjectWallet, ActionWalletFund},
		{"role:member", "*", ObjectStorage, ActionStoragePurchase},
		{"role:member", "*", ObjectStorage, ActionStorageView},
		{"role:member", "*", ObjectFile, ActionFileUpload},
		{"role:member", "*", ObjectFile, ActionFileDelete},
	}
	for _, p := range policies {
		has, err := enforcer.HasPolicy(p[0], p[1], p[2], p[3])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2], p[3]); err != nil {
			return err
		}
	}
	return nil
}
