// Package pipeline 串联一次完整的刷新周期（读取、加工、写入）以及按固定间隔重复执行的调度器。
package pipeline
