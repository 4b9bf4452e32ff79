package v1

import (
	"net/http"

	"respirapt-backend/internal/delivery/http/response"
	"respirapt-backend/internal/domain"
	"respirapt-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
}

func NewOnboardingHandler(protected *gin.RouterGroup, onboardingUC domain.OnboardingUsecase) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC}

	onboarding := protected.Group("/onboarding")
	{
		onboarding.POST("/complete", handler.Complete)
	}
}

// Complete godoc
// @Summary      Complete Onboarding
// @Description  Store the smoking baseline and goal, then seed the starter task plan.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        answers  body      domain.OnboardingInput  true  "Questionnaire answers"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /onboarding/complete [post]
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var in domain.OnboardingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	user, err := h.onboardingUC.Complete(c.Request.Context(), userID, in)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding completed", user)
}
