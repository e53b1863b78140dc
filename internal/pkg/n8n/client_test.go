package n8n

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"lightcore/internal/model"
)

func testPayload() *model.WebhookPayload {
	return &model.WebhookPayload{
		Message:   "你好",
		SessionID: "session_1",
		UserID:    "user_1",
		Timestamp: "2026-08-30T00:00:00Z",
		Source:    "lightcore-ai-website",
	}
}

func TestNormalize(t *testing.T) {
	Convey("normalize 能容忍上游的各种响应形态", t, func() {
		Convey("裸 JSON 字符串", func() {
			reply, err := normalize([]byte(`"hi"`))
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "hi")
		})

		Convey("各已知消息字段，优先级内首个命中生效", func() {
			for _, body := range []string{
				`{"output":"hi"}`,
				`{"message":"hi"}`,
				`{"response":"hi"}`,
				`{"text":"hi"}`,
				`{"content":"hi"}`,
			} {
				reply, err := normalize([]byte(body))
				So(err, ShouldBeNil)
				So(reply.Message, ShouldEqual, "hi")
			}
		})

		Convey("output 优先于 message", func() {
			reply, err := normalize([]byte(`{"message":"m","output":"o"}`))
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "o")
		})

		Convey("非 JSON 响应按纯文本处理", func() {
			reply, err := normalize([]byte("plain text reply"))
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "plain text reply")
		})

		Convey("没有已知字段时整个对象作为消息兜底", func() {
			reply, err := normalize([]byte(`{"foo":"bar"}`))
			So(err, ShouldBeNil)
			So(reply.Message, ShouldContainSubstring, "foo")
			So(reply.Message, ShouldContainSubstring, "bar")
		})

		Convey("消息去除首尾空白", func() {
			reply, err := normalize([]byte(`{"output":"  hi  "}`))
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "hi")
		})

		Convey("空响应体归为 empty-response", func() {
			_, err := normalize([]byte("  "))
			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindEmptyResponse)
		})

		Convey("消息为空白时归为 invalid-response", func() {
			_, err := normalize([]byte(`{"output":"   "}`))
			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindInvalidResponse)
		})
	})
}

func TestNormalizePhoto(t *testing.T) {
	Convey("normalize 提取图片URL", t, func() {
		Convey("显式 photo 字段", func() {
			reply, err := normalize([]byte(`{"message":"see chart","photo":"https://x.com/a.png"}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "https://x.com/a.png")
		})

		Convey("image/picture 字段同样生效", func() {
			reply, err := normalize([]byte(`{"message":"m","image":"https://x.com/b.jpg"}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "https://x.com/b.jpg")

			reply, err = normalize([]byte(`{"message":"m","picture":"https://x.com/c.gif"}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "https://x.com/c.gif")
		})

		Convey("没有显式字段时从消息文本中尽力匹配", func() {
			reply, err := normalize([]byte(`{"message":"see https://x.com/a.png for details"}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "https://x.com/a.png")
		})

		Convey("photo 为 null 时不报错且不取值", func() {
			reply, err := normalize([]byte(`{"output":"ok","photo":null}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "")
		})

		Convey("消息中没有图片链接时 photo 为空", func() {
			reply, err := normalize([]byte(`{"message":"纯文本回复"}`))
			So(err, ShouldBeNil)
			So(reply.Photo, ShouldEqual, "")
		})
	})
}

func TestClientSend(t *testing.T) {
	Convey("Send 调用 webhook 并归一化响应", t, func() {
		Convey("成功路径，带请求头检查", func() {
			var gotMethod, gotContentType, gotAccept, gotUA string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotContentType = r.Header.Get("Content-Type")
				gotAccept = r.Header.Get("Accept")
				gotUA = r.Header.Get("User-Agent")
				w.Write([]byte(`{"output":"收到"}`))
			}))
			defer srv.Close()

			client := NewClient("LightcoreAI-Website/1.0", 2*time.Second)
			reply, err := client.Send(context.Background(), srv.URL, testPayload())
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "收到")
			So(gotMethod, ShouldEqual, http.MethodPost)
			So(gotContentType, ShouldEqual, "application/json")
			So(gotAccept, ShouldEqual, "application/json")
			So(gotUA, ShouldEqual, "LightcoreAI-Website/1.0")
		})

		Convey("非 2xx 归为 server 并携带状态码", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := NewClient("ua", 2*time.Second)
			_, err := client.Send(context.Background(), srv.URL, testPayload())

			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindServer)
			So(werr.Status, ShouldEqual, http.StatusInternalServerError)
			So(werr.Detail, ShouldContainSubstring, "500")
		})

		Convey("连接失败归为 network", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			srv.Close() // 端口已关闭

			client := NewClient("ua", 2*time.Second)
			_, err := client.Send(context.Background(), srv.URL, testPayload())

			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindNetwork)
		})

		Convey("上游一直不响应时按配置超时归为 timeout", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				<-release
			}))
			defer func() {
				close(release)
				srv.Close()
			}()

			client := NewClient("ua", 80*time.Millisecond)
			start := time.Now()
			_, err := client.Send(context.Background(), srv.URL, testPayload())
			elapsed := time.Since(start)

			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindTimeout)
			So(elapsed, ShouldBeGreaterThanOrEqualTo, 80*time.Millisecond)
			So(elapsed, ShouldBeLessThan, 2*time.Second)
		})
	})
}

func TestClientSendWithFallback(t *testing.T) {
	Convey("SendWithFallback 处理 POST/GET 端点切换", t, func() {
		Convey("POST 返回 404 时以查询参数回退 GET 一次", func() {
			var posts, gets int32
			var gotQuery url.Values
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodPost:
					atomic.AddInt32(&posts, 1)
					w.WriteHeader(http.StatusNotFound)
				case http.MethodGet:
					atomic.AddInt32(&gets, 1)
					gotQuery = r.URL.Query()
					w.Write([]byte(`{"output":"GET ok"}`))
				}
			}))
			defer srv.Close()

			client := NewClient("ua", 2*time.Second)
			reply, err := client.SendWithFallback(context.Background(), srv.URL, testPayload())
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "GET ok")
			So(atomic.LoadInt32(&posts), ShouldEqual, 1)
			So(atomic.LoadInt32(&gets), ShouldEqual, 1)
			So(gotQuery.Get("message"), ShouldEqual, "你好")
			So(gotQuery.Get("sessionId"), ShouldEqual, "session_1")
			So(gotQuery.Get("source"), ShouldEqual, "lightcore-ai-website")
		})

		Convey("POST 成功时不触发 GET", func() {
			var gets int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					atomic.AddInt32(&gets, 1)
				}
				w.Write([]byte(`{"output":"POST ok"}`))
			}))
			defer srv.Close()

			client := NewClient("ua", 2*time.Second)
			reply, err := client.SendWithFallback(context.Background(), srv.URL, testPayload())
			So(err, ShouldBeNil)
			So(reply.Message, ShouldEqual, "POST ok")
			So(atomic.LoadInt32(&gets), ShouldEqual, 0)
		})

		Convey("POST 返回其他错误状态不触发回退", func() {
			var gets int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					atomic.AddInt32(&gets, 1)
					return
				}
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer srv.Close()

			client := NewClient("ua", 2*time.Second)
			_, err := client.SendWithFallback(context.Background(), srv.URL, testPayload())

			var werr *Error
			So(errors.As(err, &werr), ShouldBeTrue)
			So(werr.Kind, ShouldEqual, model.KindServer)
			So(werr.Status, ShouldEqual, http.StatusBadGateway)
			So(atomic.LoadInt32(&gets), ShouldEqual, 0)
		})
	})
}
