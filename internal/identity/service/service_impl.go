package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/clock"
	"github.com/lumenis/lumenis/internal/config"
	"github.com/lumenis/lumenis/internal/identity/domain"
	walletdomain "github.com/lumenis/lumenis/internal/wallet/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Config config.Config
	Repo   domain.Repository
	Wallet walletdomain.Service
}

type service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	jwtSecret  []byte
	sessionTTL time.Duration
	currency   string
	repo       domain.Repository
	wallet     walletdomain.Service
}

func New(p Params) domain.Service {
	return &service{
		db:         p.DB,
		log:        p.Log.Named("identity.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		jwtSecret:  []byte(p.Config.AuthJWTSecret),
		sessionTTL: time.Duration(p.Config.SessionTTLMins) * time.Minute,
		currency:   p.Config.Currency,
		repo:       p.Repo,
		wallet:     p.Wallet,
	}
}

func (s *service) CreateSchool(ctx context.Context, name, operatorEmail, operatorPassword string) (*domain.School, *domain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, domain.ErrSchoolNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(operatorPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	now := s.clock.Now()
	school := &domain.School{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
	}
	account := &domain.Account{
		ID:           s.genID.Generate(),
		SchoolID:     school.ID,
		Email:        normalizeEmail(operatorEmail),
		PasswordHash: string(hash),
		Role:         domain.RoleOperator,
		CreatedAt:    now,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertSchool(ctx, tx, school); err != nil {
			return err
		}
		if err := s.repo.InsertAccount(ctx, tx, account); err != nil {
			return err
		}
		_, err := s.wallet.Provision(ctx, tx, school.ID, account.ID, s.currency)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("school created",
		zap.String("name", school.Name),
		zap.Int64("school_id", school.ID.Int64()),
	)
	return school, account, nil
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Account, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{
		ID:           s.genID.Generate(),
		SchoolID:     req.SchoolID,
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	// Account and wallet appear together or not at all.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.FindSchool(ctx, tx, req.SchoolID); err != nil {
			return err
		}
		if err := s.repo.InsertAccount(ctx, tx, account); err != nil {
			return err
		}
		_, err := s.wallet.Provision(ctx, tx, req.SchoolID, account.ID, s.currency)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account registered",
		zap.Int64("account_id", account.ID.Int64()),
		zap.String("role", string(account.Role)),
	)
	return account, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	account, err := s.repo.FindAccountByEmail(ctx, s.db, normalizeEmail(req.Email))
	if err != nil {
		if err == domain.ErrAccountNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	expiresAt := s.clock.Now().Add(s.sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    account.ID.String(),
		"school": account.SchoolID.String(),
		"role":   string(account.Role),
		"iat":    s.clock.Now().Unix(),
		"exp":    expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		Token:     signed,
		ExpiresAt: expiresAt.Unix(),
		Account:   account,
	}, nil
}

func (s *service) Authenticate(ctx context.Context, tokenString string) (*domain.Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	accountID, err := parseID(mapClaims, "sub")
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	schoolID, err := parseID(mapClaims, "school")
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	role, _ := mapClaims["role"].(string)
	if !domain.Role(role).Valid() {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Claims{
		AccountID: accountID,
		SchoolID:  schoolID,
		Role:      domain.Role(role),
	}, nil
}

func (s *service) GetAccount(ctx context.Context, id snowflake.ID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, s.db, id)
}

func parseID(claims jwt.MapClaims, key string) (snowflake.ID, error) {
	raw, _ := claims[key].(string)
	return snowflake.ParseString(raw)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
