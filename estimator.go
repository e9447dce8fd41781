// estimator.go 实现了写入驱动的文件增长估算器。
// 估算器在内存中跟踪日志文件的估计大小, 据观测到的增长速度自适应
// 推算距下一次真实 stat 核对还能再写多少次, 把昂贵的文件系统调用
// 摊薄到成百上千次写入上。
//
// 估算器本身不加锁, 由所属轮转目标的互斥锁保护。

package logsinkx

import "math"

const (
	// minCheckInterval 是两次真实核对之间的最少写入次数。
	// 增长再快也至少隔这么多次写入才核对一次。
	minCheckInterval = 10

	// maxCheckInterval 是两次真实核对之间的最多写入次数。
	// 增长再慢也不会超过这么多次写入不核对。
	maxCheckInterval = 1000

	// degradedCheckInterval 是连续失准降级后使用的保守核对间隔。
	degradedCheckInterval = maxCheckInterval / 2

	// growthSampleWindow 是参与移动平均的增长速度样本数量。
	growthSampleWindow = 5

	// growthFloor 是平均每次写入增长的下限(字节)。
	// 防止一串超短写入把间隔推算得过于激进。
	growthFloor = 10

	// checkSafetyFactor 是推算核对间隔时的安全系数。
	// 只消耗剩余空间的约三分之二就核对, 给估算误差留出余量。
	checkSafetyFactor = 0.618

	// maxLargeErrors 是触发降级前允许的连续大偏差次数。
	maxLargeErrors = 3
)

// growthEstimator 维护单个轮转目标的大小估值与核对节奏。
//
// 每次写入把估计字节数累加进 estimatedSize 并消耗一次核对倒数;
// 倒数归零时执行真实 stat, 校准估值并根据最近的增长速度推算下一个
// 倒数值。真实值与估值偏差连续超过 10% 时进入降级模式, 用保守间隔
// 强制频繁核对直到估算恢复可信。
type growthEstimator struct {
	// estimatedSize 是内存中维护的文件大小估值(字节)。
	estimatedSize int64

	// lastActualSize 是最近一次真实核对确认的文件大小(字节)。
	lastActualSize int64

	// checksRemaining 是距下一次真实核对剩余的写入次数。
	// 非正值表示核对已到期, 每次写入都会尝试核对直到成功。
	checksRemaining int

	// recentGrowthSamples 是最近几次核对观测到的增长速度样本,
	// 单位为字节/次写入, 最旧的先淘汰。
	recentGrowthSamples []float64

	// averageGrowthPerWrite 是样本的移动平均, 不低于 growthFloor。
	averageGrowthPerWrite int64

	// consecutiveLargeErrors 是连续大偏差核对的次数。
	consecutiveLargeErrors int

	// writesSinceLastCheck 是自上次真实核对以来的写入次数。
	writesSinceLastCheck int
}

// newGrowthEstimator 创建一个核对立即到期的估算器:
// 第一次写入总是执行真实 stat, 用磁盘上的实际状态建立基准。
func newGrowthEstimator() *growthEstimator {
	return &growthEstimator{checksRemaining: 1}
}

// recordWrite 记录一次即将发生的写入, 把估计字节数计入估值。
//
// 参数:
//   - estimatedBytes: 本次写入的估计字节数
func (e *growthEstimator) recordWrite(estimatedBytes int64) {
	e.estimatedSize += estimatedBytes
	e.writesSinceLastCheck++
}

// shouldCheck 消耗一次核对倒数, 返回真实核对是否到期。
// 到期后在核对成功之前保持到期状态: 核对失败(stat 出错)被跳过时,
// 下一次写入会立刻重试。
func (e *growthEstimator) shouldCheck() bool {
	e.checksRemaining--
	return e.checksRemaining <= 0
}

// reconcile 用真实大小校准估算器并推算下一次核对的写入间隔。
//
// 校准分四步: 先用校准前的估值判定本次偏差是否超过 10% 容差;
// 再把自上次核对以来的增长换算成字节/次样本, 维护移动平均;
// 然后把估值与基准拨到真实值; 最后根据剩余空间和平均增长推算
// 下一个倒数值, 夹紧到 [minCheckInterval, maxCheckInterval]。
//
// 参数:
//   - actualSize: 真实核对(含轮转或截断之后)确认的文件大小
//   - maxSize: 当前生效的文件大小上限
func (e *growthEstimator) reconcile(actualSize, maxSize int64) {
	// 第一步: 偏差判定, 分母是校准前的估值
	diff := actualSize - e.estimatedSize
	if diff < 0 {
		diff = -diff
	}
	if diff > e.estimatedSize/10 {
		e.consecutiveLargeErrors++
	} else {
		e.consecutiveLargeErrors = 0
	}

	// 第二步: 增长速度采样, 文件没有增长或没有写入时不产生样本
	sizeIncrease := actualSize - e.lastActualSize
	if sizeIncrease > 0 && e.writesSinceLastCheck > 0 {
		sample := float64(sizeIncrease) / float64(e.writesSinceLastCheck)
		e.recentGrowthSamples = append(e.recentGrowthSamples, sample)
		if len(e.recentGrowthSamples) > growthSampleWindow {
			e.recentGrowthSamples = e.recentGrowthSamples[1:]
		}

		var sum float64
		for _, s := range e.recentGrowthSamples {
			sum += s
		}
		avg := int64(math.Round(sum / float64(len(e.recentGrowthSamples))))
		if avg < growthFloor {
			avg = growthFloor
		}
		e.averageGrowthPerWrite = avg
	}

	// 第三步: 估值和基准拨到真实值
	e.estimatedSize = actualSize
	e.lastActualSize = actualSize
	e.writesSinceLastCheck = 0

	// 第四步: 推算下一个核对间隔
	switch {
	case e.averageGrowthPerWrite == 0:
		// 还没有任何增长样本, 用最小间隔谨慎试探
		e.checksRemaining = minCheckInterval
	case e.consecutiveLargeErrors > maxLargeErrors:
		// 估算连续失准, 降级到保守间隔并重新累计
		e.checksRemaining = degradedCheckInterval
		e.consecutiveLargeErrors = 0
	default:
		writesLeft := float64(maxSize-actualSize) / float64(e.averageGrowthPerWrite)
		interval := int(writesLeft * checkSafetyFactor)
		if interval < minCheckInterval {
			interval = minCheckInterval
		}
		if interval > maxCheckInterval {
			interval = maxCheckInterval
		}
		e.checksRemaining = interval
	}
}

// reset 清空校准状态, 让下一次写入强制执行真实核对。
// 大小基准跟踪的是磁盘上的真实值, 与配置无关, 保持不动。
func (e *growthEstimator) reset() {
	e.checksRemaining = 1
	e.recentGrowthSamples = nil
	e.averageGrowthPerWrite = 0
	e.consecutiveLargeErrors = 0
	e.writesSinceLastCheck = 0
}
