package auth_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smartystreets/goconvey/convey"

	"github.com/drishtilabs/drishti/internal/auth"
	"github.com/drishtilabs/drishti/internal/domain/model"
)

const testSecret = "unit-test-secret"

func mintToken(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func departmentClaims() auth.Claims {
	return auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:          auth.RoleDepartment,
		InstitutionID: "inst-1",
		DepartmentID:  "dept-7",
	}
}

func TestVerify(t *testing.T) {
	convey.Convey("Given a verifier with a shared secret", t, func() {
		v := auth.NewVerifier(testSecret)
		convey.So(v.Enabled(), convey.ShouldBeTrue)

		convey.Convey("A well-formed token resolves the full identity", func() {
			id, err := v.Verify(mintToken(t, testSecret, departmentClaims()))
			convey.So(err, convey.ShouldBeNil)
			convey.So(id, convey.ShouldResemble, &auth.Identity{
				UserID:        "user-42",
				Role:          auth.RoleDepartment,
				InstitutionID: "inst-1",
				DepartmentID:  "dept-7",
			})
		})

		convey.Convey("A missing role defaults to department", func() {
			claims := departmentClaims()
			claims.Role = ""
			id, err := v.Verify(mintToken(t, testSecret, claims))
			convey.So(err, convey.ShouldBeNil)
			convey.So(id.Role, convey.ShouldEqual, auth.RoleDepartment)
		})

		convey.Convey("A token signed with another secret is rejected", func() {
			_, err := v.Verify(mintToken(t, "someone-else", departmentClaims()))
			convey.So(err, convey.ShouldWrap, auth.ErrInvalidToken)
		})

		convey.Convey("An expired token is rejected", func() {
			claims := departmentClaims()
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			_, err := v.Verify(mintToken(t, testSecret, claims))
			convey.So(err, convey.ShouldWrap, auth.ErrInvalidToken)
		})

		convey.Convey("Expiry within the leeway window still passes", func() {
			claims := departmentClaims()
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-5 * time.Second))
			_, err := v.Verify(mintToken(t, testSecret, claims))
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("Garbage input is rejected", func() {
			_, err := v.Verify("not.a.token")
			convey.So(err, convey.ShouldWrap, auth.ErrInvalidToken)
		})
	})
}

func TestFromRequest(t *testing.T) {
	convey.Convey("Given a verifier with a shared secret", t, func() {
		v := auth.NewVerifier(testSecret)

		request := func(header string) *http.Request {
			r, _ := http.NewRequest(http.MethodGet, "/api/evaluations", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			return r
		}

		convey.Convey("No Authorization header resolves anonymous", func() {
			id, err := v.FromRequest(request(""))
			convey.So(err, convey.ShouldBeNil)
			convey.So(id, convey.ShouldBeNil)
		})

		convey.Convey("A bearer token resolves the identity", func() {
			id, err := v.FromRequest(request("Bearer " + mintToken(t, testSecret, departmentClaims())))
			convey.So(err, convey.ShouldBeNil)
			convey.So(id.UserID, convey.ShouldEqual, "user-42")
		})

		convey.Convey("A non-bearer scheme is rejected", func() {
			_, err := v.FromRequest(request("Basic dXNlcjpwYXNz"))
			convey.So(err, convey.ShouldWrap, auth.ErrInvalidToken)
		})

		convey.Convey("With an empty secret every request is anonymous", func() {
			disabled := auth.NewVerifier("")
			convey.So(disabled.Enabled(), convey.ShouldBeFalse)

			id, err := disabled.FromRequest(request("Bearer " + mintToken(t, testSecret, departmentClaims())))
			convey.So(err, convey.ShouldBeNil)
			convey.So(id, convey.ShouldBeNil)
		})
	})
}

func TestCanRead(t *testing.T) {
	convey.Convey("Given submissions from several sources", t, func() {
		system := &model.Submission{ID: "sys", DataSource: model.SourceSystem, DepartmentID: "dept-9"}
		ownDept := &model.Submission{ID: "own", DataSource: model.SourceUser, DepartmentID: "dept-7", UserID: "user-1"}
		otherDept := &model.Submission{ID: "other", DataSource: model.SourceUser, DepartmentID: "dept-9", UserID: "user-2"}
		noDept := &model.Submission{ID: "nodept", DataSource: model.SourceUser, UserID: "user-42"}

		convey.Convey("Anonymous callers read everything", func() {
			for _, sub := range []*model.Submission{system, ownDept, otherDept, noDept} {
				convey.So(auth.CanRead(nil, sub), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Institution-role callers read everything", func() {
			id := &auth.Identity{UserID: "admin", Role: auth.RoleInstitution, InstitutionID: "inst-1"}
			for _, sub := range []*model.Submission{system, ownDept, otherDept, noDept} {
				convey.So(auth.CanRead(id, sub), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Department-role callers see system data plus their own department", func() {
			id := &auth.Identity{UserID: "user-42", Role: auth.RoleDepartment, DepartmentID: "dept-7"}
			convey.So(auth.CanRead(id, system), convey.ShouldBeTrue)
			convey.So(auth.CanRead(id, ownDept), convey.ShouldBeTrue)
			convey.So(auth.CanRead(id, otherDept), convey.ShouldBeFalse)
		})

		convey.Convey("Without a linked department, ownership falls back to the uploader", func() {
			id := &auth.Identity{UserID: "user-42", Role: auth.RoleDepartment}
			convey.So(auth.CanRead(id, noDept), convey.ShouldBeTrue)
			convey.So(auth.CanRead(id, otherDept), convey.ShouldBeFalse)
		})
	})
}
