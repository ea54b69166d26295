/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package selfdestruct

import (
	"context"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mikelane/selfdestruct/internal/credential"
	"github.com/mikelane/selfdestruct/internal/deploy"
	"github.com/mikelane/selfdestruct/internal/errdefs"
	"github.com/mikelane/selfdestruct/internal/permission"
	"github.com/mikelane/selfdestruct/internal/resource"
	"github.com/mikelane/selfdestruct/internal/tags"
)

var _ = Describe("Self-destruct service", func() {
	const (
		clientID = "11111111-1111-1111-1111-111111111111"
		tenantID = "22222222-2222-2222-2222-222222222222"
	)

	var (
		ctx     context.Context
		now     time.Time
		cloud   *fakeCloud
		store   *credential.Store
		issued  int
		service *Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		cloud = newFakeCloud()
		cloud.addGroup("rg1", map[string]string{"env": "dev"})
		issued = 0

		issuer := credential.IssuerFunc(func(context.Context) (credential.Credential, error) {
			issued++
			return credential.Credential{ClientID: clientID, ClientSecret: "issued-secret", TenantID: tenantID}, nil
		})
		store = credential.NewStore(credential.DefaultPath(filepath.Join(GinkgoT().TempDir(), "azure")), issuer)

		locator := resource.NewLocator(cloud, cloud)
		service = NewService(
			store,
			locator,
			permission.NewValidator(cloud, cloud),
			deploy.NewDeployer(cloud, "https://management.azure.com"),
			tags.NewTracker(cloud, locator),
		)
		service.now = func() time.Time { return now }
	})

	Describe("Scenario: arm, list and disarm a resource group", func() {
		It("schedules the group and then removes every trace of the schedule", func() {
			By("arming rg1 for 2h30m")
			armed, err := service.Arm(ctx, ArmOptions{
				Target: resource.Target{ResourceGroup: "rg1"},
				Timer:  "2h30m",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(armed.Deadline).To(Equal(now.Add(2*time.Hour + 30*time.Minute)))
			Expect(armed.Timer).To(Equal("2h30m"))
			Expect(armed.Deployment.Name).To(Equal("self-destruct-resourceGroup-rg1-rg1"))

			By("checking the deployment targets the group")
			params := cloud.deployments["rg1/self-destruct-resourceGroup-rg1-rg1"]
			Expect(params).NotTo(BeNil())
			Expect(parameter(params, "utcTime")).To(Equal("2025-06-01T14:30:00Z"))
			Expect(parameter(params, "resourceUri")).To(Equal(
				"https://management.azure.com" + groupID("rg1") + "?api-version=2018-02-01"))
			Expect(params).NotTo(HaveKey("servicePrincipalClientId"))

			By("checking the tags were merged into the existing ones")
			Expect(cloud.tags[groupID("rg1")]).To(Equal(map[string]string{
				"env":                "dev",
				"self-destruct":      "",
				"self-destruct-date": "2025-06-01T14:30:00Z",
			}))

			By("listing scheduled targets")
			entries, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(tags.Entry{
				Name: "rg1", ResourceGroup: "rg1", Type: "resourceGroup", Date: "2025-06-01T14:30:00Z",
			}))

			By("disarming rg1")
			d, err := service.Disarm(ctx, resource.Target{ResourceGroup: "rg1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.Name).To(Equal("rg1"))
			Expect(cloud.deployments).To(BeEmpty())
			Expect(cloud.workflows).To(BeEmpty())
			Expect(cloud.roleAssignments).To(BeEmpty())
			Expect(cloud.tags[groupID("rg1")]).To(Equal(map[string]string{"env": "dev"}))

			By("listing again")
			entries, err = service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("Scenario: re-arming a resource", func() {
		It("updates the existing deployment instead of adding another", func() {
			id := cloud.addResource("rg1", "Microsoft.Storage/storageAccounts", "acct1", nil)

			_, err := service.Arm(ctx, ArmOptions{Target: resource.Target{ResourceID: id}, Timer: "1h"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Arm(ctx, ArmOptions{Target: resource.Target{ResourceID: id}, Timer: "1d"})
			Expect(err).NotTo(HaveOccurred())

			Expect(cloud.deployments).To(HaveLen(1))
			params := cloud.deployments["rg1/self-destruct-storageAccounts-rg1-acct1"]
			Expect(parameter(params, "utcTime")).To(Equal("2025-06-02T12:00:00Z"))
			Expect(parameter(params, "resourceUri")).To(HaveSuffix("?api-version=2023-05-01"))

			By("listing the resource even though the listing omits tag values")
			entries, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(ConsistOf(tags.Entry{
				Name: "acct1", ResourceGroup: "rg1", Type: "Microsoft.Storage/storageAccounts", Date: "2025-06-02T12:00:00Z",
			}))
		})
	})

	Describe("Scenario: arm, disarm and arm again", func() {
		It("grants the new workflow identity a fresh role assignment", func() {
			target := resource.Target{ResourceGroup: "rg1"}

			_, err := service.Arm(ctx, ArmOptions{Target: target, Timer: "1h"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cloud.roleAssignments).To(HaveLen(1))

			_, err = service.Disarm(ctx, target)
			Expect(err).NotTo(HaveOccurred())
			Expect(cloud.roleAssignments).To(BeEmpty())

			_, err = service.Arm(ctx, ArmOptions{Target: target, Timer: "2h"})
			Expect(err).NotTo(HaveOccurred())
			Expect(cloud.roleAssignments).To(ConsistOf("principal-2"))
			Expect(cloud.tags[groupID("rg1")]).To(HaveKeyWithValue("self-destruct-date", "2025-06-01T14:00:00Z"))
		})
	})

	Describe("Scenario: listing a schedule whose deadline has passed", func() {
		It("still lists the target and logs it as overdue", func() {
			core, logs := observer.New(zapcore.InfoLevel)
			ctx = logr.NewContext(ctx, zapr.NewLogger(zap.New(core)))

			_, err := service.Arm(ctx, ArmOptions{Target: resource.Target{ResourceGroup: "rg1"}, Timer: "1h"})
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(3 * time.Hour)
			entries, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))

			overdue := logs.FilterMessageSnippet("overdue").All()
			Expect(overdue).To(HaveLen(1))
			Expect(overdue[0].ContextMap()).To(HaveKeyWithValue("overdueBy", "2h"))
		})
	})

	Describe("Scenario: invalid arm requests", func() {
		DescribeTable("fails without deploying anything",
			func(opts ArmOptions, check func(error) bool) {
				_, err := service.Arm(ctx, opts)
				Expect(check(err)).To(BeTrue(), "unexpected error: %v", err)
				Expect(cloud.deployments).To(BeEmpty())
				Expect(cloud.tags[groupID("rg1")]).To(Equal(map[string]string{"env": "dev"}))
			},
			Entry("neither target", ArmOptions{Timer: "1h"}, errdefs.IsInvalidInput),
			Entry("both targets", ArmOptions{Target: resource.Target{ResourceGroup: "rg1", ResourceID: groupID("rg1")}, Timer: "1h"}, errdefs.IsInvalidInput),
			Entry("bad timer", ArmOptions{Target: resource.Target{ResourceGroup: "rg1"}, Timer: "xh"}, errdefs.IsInvalidInput),
			Entry("missing group", ArmOptions{Target: resource.Target{ResourceGroup: "nope"}, Timer: "1h"}, errdefs.IsNotFound),
			Entry("delegated before configure", ArmOptions{Target: resource.Target{ResourceGroup: "rg1"}, Timer: "1h", Delegated: true}, errdefs.IsConfiguration),
		)
	})

	Describe("Scenario: delegated credential", func() {
		BeforeEach(func() {
			_, err := service.Configure(ctx, credential.Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(issued).To(Equal(1))

			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"appid": clientID,
				"tid":   tenantID,
				"exp":   time.Now().Add(time.Hour).Unix(),
			}).SignedString([]byte("test-key"))
			Expect(err).NotTo(HaveOccurred())
			cloud.token = permission.AccessToken{Token: token}
		})

		It("refuses to configure twice without force", func() {
			_, err := service.Configure(ctx, credential.Options{})
			Expect(errdefs.ReasonOf(err)).To(Equal(errdefs.ReasonAlreadyConfigured))

			cred, err := service.Configure(ctx, credential.Options{ClientID: "a", ClientSecret: "b", TenantID: "c", Force: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(cred.ClientID).To(Equal("a"))
		})

		It("deploys the delegated template when the principal may delete the group", func() {
			cloud.permissions = []permission.Permission{{Actions: []string{"Microsoft.Resources/subscriptions/resourceGroups/delete"}}}

			_, err := service.Arm(ctx, ArmOptions{Target: resource.Target{ResourceGroup: "rg1"}, Timer: "30m", Delegated: true})
			Expect(err).NotTo(HaveOccurred())

			params := cloud.deployments["rg1/self-destruct-resourceGroup-rg1-rg1"]
			Expect(parameter(params, "servicePrincipalClientId")).To(Equal(clientID))
			Expect(parameter(params, "servicePrincipalTenantId")).To(Equal(tenantID))
		})

		It("fails closed when a deny matches", func() {
			cloud.permissions = []permission.Permission{{
				Actions:    []string{"*"},
				NotActions: []string{"Microsoft.Resources/*"},
			}}

			_, err := service.Arm(ctx, ArmOptions{Target: resource.Target{ResourceGroup: "rg1"}, Timer: "30m", Delegated: true})
			Expect(errdefs.IsAuthorization(err)).To(BeTrue(), "unexpected error: %v", err)
			Expect(cloud.deployments).To(BeEmpty())
		})
	})

	Describe("Scenario: disarm without a schedule", func() {
		It("fails with NotFound and leaves tags alone", func() {
			cloud.tags[groupID("rg1")]["self-destruct"] = ""

			_, err := service.Disarm(ctx, resource.Target{ResourceGroup: "rg1"})
			Expect(errdefs.IsNotFound(err)).To(BeTrue(), "unexpected error: %v", err)
			Expect(cloud.tags[groupID("rg1")]).To(HaveKey("self-destruct"))
		})
	})
})
