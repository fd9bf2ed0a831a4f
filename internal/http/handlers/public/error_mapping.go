package public

import (
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// respondSubmitError 下单失败：附带提交编号与状态轨迹，便于前端展示与排查
func respondSubmitError(c *gin.Context, sub *service.Submission, err error) {
	if sub == nil {
		respondAppError(c, err)
		return
	}
	appErr := response.FromError(err)
	respondAppErrorLog(c, err)
	response.ErrorWithData(c, appErr.Code, localizedMessage(c, err), submissionView(sub))
}

func submissionView(sub *service.Submission) gin.H {
	data := gin.H{
		"submission_id": sub.ID,
		"mode":          sub.Mode,
		"state":         sub.State,
		"trace":         sub.Trace,
	}
	if sub.Result != nil {
		data["order"] = sub.Result
	}
	if sub.Preview != nil {
		data["total_price"] = sub.Preview.TotalPrice
	}
	return data
}
