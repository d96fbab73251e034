package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// accountDoc is the stored shape of an account.
type accountDoc struct {
	ID             string     `bson:"_id"`
	Name           string     `bson:"name"`
	Email          string     `bson:"email"`
	Password       string     `bson:"password"`
	IsVerified     bool       `bson:"isVerified"`
	OTP            string     `bson:"otp,omitempty"`
	OTPExpiry      *time.Time `bson:"otpExpiry,omitempty"`
	ResetOTP       string     `bson:"resetOtp,omitempty"`
	ResetOTPExpiry *time.Time `bson:"resetOtpExpiry,omitempty"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
}

func toDoc(a domain.Account) accountDoc {
	return accountDoc{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		Password:       a.PasswordHash,
		IsVerified:     a.Verified,
		OTP:            a.OTPHash,
		OTPExpiry:      a.OTPExpiry,
		ResetOTP:       a.ResetOTPHash,
		ResetOTPExpiry: a.ResetExpiry,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (d accountDoc) toDomain() domain.Account {
	return domain.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Verified:     d.IsVerified,
		OTPHash:      d.OTP,
		OTPExpiry:    utcPtr(d.OTPExpiry),
		ResetOTPHash: d.ResetOTP,
		ResetExpiry:  utcPtr(d.ResetOTPExpiry),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type accountsRepo struct {
	coll *mongo.Collection
}

func (r *accountsRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	var doc accountDoc
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Account{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return doc.toDomain(), nil
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	_, err := r.coll.InsertOne(ctx, toDoc(a))
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *accountsRepo) RefreshUnverified(ctx context.Context, email, name, passwordHash, codeHash string, expiry time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email, "isVerified": false},
		bson.M{"$set": bson.M{
			"name":      name,
			"password":  passwordHash,
			"otp":       codeHash,
			"otpExpiry": expiry,
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if _, err := r.GetByEmail(ctx, email); err != nil {
		return err
	}
	return store.ErrAlreadyExists
}

func (r *accountsRepo) SetCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, expiry time.Time) error {
	hashField, expField := codeFields(p)
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{
			hashField:   codeHash,
			expField:    expiry,
			"updatedAt": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) ConsumeCode(ctx context.Context, p domain.CodePurpose, email, codeHash string, now time.Time, newPasswordHash string) (domain.Account, error) {
	hashField, expField := codeFields(p)

	set := bson.M{"updatedAt": now.UTC()}
	if p == domain.CodeReset {
		set["password"] = newPasswordHash
	} else {
		set["isVerified"] = true
	}

	var doc accountDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{
			"email":   email,
			hashField: codeHash,
			expField:  bson.M{"$gt": now},
		},
		bson.M{
			"$set":   set,
			"$unset": bson.M{hashField: "", expField: ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Account{}, store.ErrCodeMismatch
	}
	if err != nil {
		return domain.Account{}, err
	}
	return doc.toDomain(), nil
}

func (r *accountsRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, p := range []domain.CodePurpose{domain.CodeSignup, domain.CodeReset} {
		hashField, expField := codeFields(p)
		res, err := r.coll.UpdateMany(ctx,
			bson.M{expField: bson.M{"$lte": now}},
			bson.M{"$unset": bson.M{hashField: "", expField: ""}},
		)
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}

func (r *accountsRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func codeFields(p domain.CodePurpose) (hash, expiry string) {
	if p == domain.CodeReset {
		return "resetOtp", "resetOtpExpiry"
	}
	return "otp", "otpExpiry"
}
